package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/lgonzales/lsrouted/internal/config"
	"github.com/lgonzales/lsrouted/internal/controlplane"
	"github.com/lgonzales/lsrouted/internal/ifaceinv"
	"github.com/lgonzales/lsrouted/internal/logging"
	"github.com/lgonzales/lsrouted/internal/routeinstall"
	"github.com/lgonzales/lsrouted/internal/transport"
)

func main() {
	confDir := flag.String("conf-dir", "conf", "directory holding config_<hostname>.toml")
	hostname := flag.String("hostname", "", "hostname used to locate the config file (defaults to os.Hostname)")
	installRoutes := flag.Bool("install-routes", true, "reconcile computed routes into the kernel IPv4 table")
	flag.Parse()

	if *hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			logging.Errorf("ospfd: resolving hostname: %v", err)
		}
		*hostname = h
	}

	cfg, err := config.Load(*confDir, *hostname)
	if err != nil {
		logging.Errorf("ospfd: loading configuration: %v", err)
	}

	interfaces, err := ifaceinv.Enumerate(cfg.Interfaces)
	if err != nil {
		logging.Errorf("ospfd: enumerating interfaces: %v", err)
	}

	self, err := routerID(interfaces)
	if err != nil {
		logging.Errorf("ospfd: determining router id: %v", err)
	}
	fmt.Printf("router id: %s\n", self)

	var installer *routeinstall.Installer
	if *installRoutes {
		installer = routeinstall.New()
	}

	socket := transport.NewUDPSocket(config.MaxDatagramBytes * 2)
	daemon := controlplane.New(self, interfaces, cfg.Key, socket, installer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := daemon.Run(ctx); err != nil {
		logging.Errorf("ospfd: %v", err)
	}
}

// routerID picks the first non-loopback, non-unspecified IPv4 address among
// the enumerated interfaces, stable for the process lifetime.
func routerID(interfaces []ifaceinv.Record) (netip.Addr, error) {
	for _, iface := range interfaces {
		if !iface.IP.IsValid() || iface.IP.IsLoopback() || iface.IP.IsUnspecified() {
			continue
		}
		return iface.IP, nil
	}
	return netip.Addr{}, fmt.Errorf("no usable IPv4 address among %d configured interfaces", len(interfaces))
}
