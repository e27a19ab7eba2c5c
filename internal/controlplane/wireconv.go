package controlplane

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/lgonzales/lsrouted/internal/lsdb"
	"github.com/lgonzales/lsrouted/internal/wire"
	"github.com/lgonzales/lsrouted/internal/xerrors"
)

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrSerialization, err)
	}
	return data, nil
}

func toWireLSA(l lsdb.LSA) wire.LSA {
	neighbors := make([]wire.Neighbor, len(l.Neighbors))
	for i, n := range l.Neighbors {
		neighbors[i] = wire.Neighbor{
			NeighborIP: n.IP.String(),
			LinkUp:     n.LinkUp,
			Capacity:   n.Capacity,
			LastSeen:   n.LastSeen,
		}
	}

	prefixes := make(map[string]wire.RouteState, len(l.AdvertisedPrefixes))
	for prefix, state := range l.AdvertisedPrefixes {
		if state.Active {
			prefixes[prefix.String()] = wire.ActiveRoute(state.Metric)
		} else {
			prefixes[prefix.String()] = wire.UnreachableRoute
		}
	}

	path := make([]string, len(l.Path))
	for i, hop := range l.Path {
		path[i] = hop.String()
	}

	var lastHop *string
	if len(l.Path) > 0 {
		h := l.Path[len(l.Path)-1].String()
		lastHop = &h
	}

	return wire.LSA{
		MessageType:   wire.TypeLSA,
		RouterIP:      l.Originator.String(),
		LastHop:       lastHop,
		Originator:    l.Originator.String(),
		SeqNum:        l.SeqNum,
		NeighborCount: len(neighbors),
		Neighbors:     neighbors,
		RoutingTable:  prefixes,
		Path:          path,
		TTL:           l.TTL,
	}
}

func fromWireLSA(w wire.LSA) (lsdb.LSA, error) {
	originator, err := netip.ParseAddr(w.Originator)
	if err != nil {
		return lsdb.LSA{}, fmt.Errorf("%w: originator %q: %v", xerrors.ErrAddrParse, w.Originator, err)
	}

	neighbors := make([]lsdb.NeighborAdvert, len(w.Neighbors))
	for i, n := range w.Neighbors {
		ip, err := netip.ParseAddr(n.NeighborIP)
		if err != nil {
			return lsdb.LSA{}, fmt.Errorf("%w: neighbor ip %q: %v", xerrors.ErrAddrParse, n.NeighborIP, err)
		}
		neighbors[i] = lsdb.NeighborAdvert{IP: ip, LinkUp: n.LinkUp, Capacity: n.Capacity, LastSeen: n.LastSeen}
	}

	prefixes := make(map[netip.Prefix]lsdb.RouteState, len(w.RoutingTable))
	for cidr, state := range w.RoutingTable {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return lsdb.LSA{}, fmt.Errorf("%w: prefix %q: %v", xerrors.ErrAddrParse, cidr, err)
		}
		if state.Active {
			prefixes[prefix] = lsdb.ActiveRoute(state.Metric)
		} else {
			prefixes[prefix] = lsdb.UnreachableRoute
		}
	}

	path := make([]netip.Addr, len(w.Path))
	for i, hop := range w.Path {
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			return lsdb.LSA{}, fmt.Errorf("%w: path hop %q: %v", xerrors.ErrAddrParse, hop, err)
		}
		path[i] = addr
	}

	return lsdb.LSA{
		Originator:         originator,
		SeqNum:             w.SeqNum,
		Neighbors:          neighbors,
		AdvertisedPrefixes: prefixes,
		Path:               path,
		TTL:                w.TTL,
	}, nil
}
