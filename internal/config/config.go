// Package config loads the per-host administrative configuration and
// defines the protocol constants used throughout the daemon.
package config

import (
	"encoding/base64"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Protocol constants, per the wire specification.
const (
	Port                = 5000
	HelloInterval       = 20 // seconds
	LSAInterval         = 30 // seconds
	NeighborTimeout     = 60 // seconds
	InitialTTL          = 64
	InfiniteMetric      = 16
	DefaultCapacityMbps = 100
	ReferenceBwBps      = 100_000_000 // 10^8

	// MaxDatagramBytes is the largest plaintext payload accepted after
	// decryption, per the wire protocol.
	MaxDatagramBytes = 2048

	// AccessPrefixMetric is the metric a router advertises for the
	// default route (0.0.0.0/0) it originates when one of its local
	// interfaces belongs to the access-level network.
	AccessPrefixMetric = 20
)

// AccessNetwork is the administratively-defined access-level network. A
// router with a local interface inside this network additionally
// originates a default route.
var AccessNetwork = netip.MustParsePrefix("192.168.0.0/16")

// InterfaceSpec is one entry of the configuration file's interfaces list:
// administrative intent for a named local interface.
type InterfaceSpec struct {
	Name         string `toml:"name"`
	CapacityMbps uint32 `toml:"capacity_mbps"`
	LinkActive   bool   `toml:"link_active"`
}

// fileSchema mirrors conf/config_<hostname>.toml.
type fileSchema struct {
	Interfaces []InterfaceSpec `toml:"interfaces"`
	Key        string          `toml:"key"`
}

// Config is the parsed, validated configuration for this host.
type Config struct {
	Interfaces []InterfaceSpec
	// Key is the 32-byte symmetric key used by internal/xcrypt, or nil if
	// the configuration file did not set one.
	Key *[32]byte
}

// Load reads config_<hostname>.toml from dir (the daemon passes "conf" by
// default; pass "" for the current working directory) and validates it. A load failure is fatal at
// startup per the daemon's error-handling policy: callers should log and
// exit non-zero rather than continue with partial configuration.
func Load(dir, hostname string) (*Config, error) {
	path := filepath.Join(dir, fmt.Sprintf("config_%s.toml", hostname))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw fileSchema
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg := &Config{Interfaces: raw.Interfaces}

	if raw.Key != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(raw.Key)
		if err != nil {
			return nil, fmt.Errorf("config: key is not valid base64: %w", err)
		}
		if len(keyBytes) != 32 {
			return nil, fmt.Errorf("config: key must decode to 32 bytes, got %d", len(keyBytes))
		}
		var key [32]byte
		copy(key[:], keyBytes)
		cfg.Key = &key
	}

	return cfg, nil
}
