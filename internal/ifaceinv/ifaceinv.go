// Package ifaceinv enumerates the host's network interfaces and matches them
// against the configured interface list, producing the address and capacity
// facts the neighbor table and route installer need.
package ifaceinv

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/lgonzales/lsrouted/internal/config"
	"github.com/lgonzales/lsrouted/internal/xerrors"
)

// Record describes one configured, locally-present interface.
type Record struct {
	Name         string
	IP           netip.Addr
	Network      netip.Prefix
	Broadcast    netip.Addr
	CapacityMbps uint32
	LinkUp       bool
}

// Enumerate walks the host's interfaces and returns one Record per entry in
// specs, in order. Interfaces named in specs but absent from the host, down
// on the host, or configured with LinkActive false are reported with LinkUp
// false rather than omitted. A present interface without an IPv4 address
// makes Enumerate return an error.
func Enumerate(specs []config.InterfaceSpec) ([]Record, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("ifaceinv: listing interfaces: %w", err)
	}
	byName := make(map[string]net.Interface, len(ifaces))
	for _, iface := range ifaces {
		byName[iface.Name] = iface
	}

	records := make([]Record, 0, len(specs))
	for _, spec := range specs {
		iface, present := byName[spec.Name]
		if !present {
			records = append(records, Record{
				Name:         spec.Name,
				CapacityMbps: spec.CapacityMbps,
				LinkUp:       false,
			})
			continue
		}

		record, err := recordFor(iface, spec)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func recordFor(iface net.Interface, spec config.InterfaceSpec) (Record, error) {
	up := spec.LinkActive && iface.Flags&net.FlagUp != 0
	record := Record{
		Name:         iface.Name,
		CapacityMbps: spec.CapacityMbps,
		LinkUp:       up,
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return Record{}, fmt.Errorf("%w: reading addresses for %s: %v", xerrors.ErrNetwork, iface.Name, err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}

		addrPort, ok := netip.AddrFromSlice(ip4)
		if !ok {
			continue
		}
		ones, _ := ipNet.Mask.Size()
		prefix := netip.PrefixFrom(addrPort, ones).Masked()

		record.IP = addrPort
		record.Network = prefix
		record.Broadcast = broadcastAddr(prefix)
		return record, nil
	}

	return Record{}, fmt.Errorf("%w: interface %s has no IPv4 address", xerrors.ErrConfig, iface.Name)
}

func broadcastAddr(prefix netip.Prefix) netip.Addr {
	base := prefix.Masked().Addr().As4()
	bits := prefix.Bits()
	hostBits := 32 - bits
	var mask uint32 = 0
	if hostBits > 0 {
		mask = (uint32(1) << uint(hostBits)) - 1
	}

	baseUint := uint32(base[0])<<24 | uint32(base[1])<<16 | uint32(base[2])<<8 | uint32(base[3])
	bcastUint := baseUint | mask
	bcast := [4]byte{
		byte(bcastUint >> 24),
		byte(bcastUint >> 16),
		byte(bcastUint >> 8),
		byte(bcastUint),
	}
	return netip.AddrFrom4(bcast)
}
