// Package lsdb holds the newest link-state advertisement per originator,
// deduplicates flood traffic, and forwards accepted LSAs onward. It is the
// authoritative source the SPF engine reads to build its graph.
package lsdb

import (
	"net/netip"
	"sync"
)

// RouteState is a tagged Active(metric)/Unreachable route, as advertised by
// an originator for one prefix.
type RouteState struct {
	Active bool
	Metric uint32
}

func ActiveRoute(metric uint32) RouteState { return RouteState{Active: true, Metric: metric} }

var UnreachableRoute = RouteState{}

// NeighborAdvert is the domain form of one neighbor-table row as carried
// inside an LSA.
type NeighborAdvert struct {
	IP       netip.Addr
	LinkUp   bool
	Capacity uint32
	LastSeen int64
}

// LSA is one link-state advertisement.
type LSA struct {
	Originator         netip.Addr
	SeqNum             uint32
	Neighbors          []NeighborAdvert
	AdvertisedPrefixes map[netip.Prefix]RouteState
	Path               []netip.Addr
	TTL                uint8
}

func (l LSA) clone() LSA {
	out := l
	out.Neighbors = append([]NeighborAdvert(nil), l.Neighbors...)
	out.Path = append([]netip.Addr(nil), l.Path...)
	out.AdvertisedPrefixes = make(map[netip.Prefix]RouteState, len(l.AdvertisedPrefixes))
	for k, v := range l.AdvertisedPrefixes {
		out.AdvertisedPrefixes[k] = v
	}
	return out
}

// containsHop reports whether self already forwarded this LSA, per the
// split-horizon rule.
func (l LSA) containsHop(self netip.Addr) bool {
	for _, hop := range l.Path {
		if hop == self {
			return true
		}
	}
	return false
}

// Sender broadcasts an LSA out every local interface whose network does not
// contain excludeFrom (strict flooding), or out every interface when
// excludeFrom is the zero Prefix (origination).
type Sender interface {
	Flood(lsa LSA, excludeFrom netip.Prefix) error
}

type procKey struct {
	originator netip.Addr
	seqNum     uint32
}

// seqGreaterThan compares sequence numbers under unsigned half-window
// wraparound, so a wrapped counter is still treated as "newer" rather than
// stuck behind a stale high value. See the wraparound note in the
// operational docs: this makes wraparound survivable but does not eliminate
// the one-in-2^32 collision window.
func seqGreaterThan(a, b uint32) bool {
	return int32(a-b) > 0
}

// DB is a concurrency-safe link-state database.
type DB struct {
	mu        sync.Mutex
	self      netip.Addr
	entries   map[netip.Addr]LSA
	processed map[procKey]struct{}
	sender    Sender
}

func New(self netip.Addr, sender Sender) *DB {
	return &DB{
		self:      self,
		entries:   make(map[netip.Addr]LSA),
		processed: make(map[procKey]struct{}),
		sender:    sender,
	}
}

// Accept runs the flood accept test against an LSA received on
// receivedFromNetwork. It returns true if the LSA was newly installed into
// the database (meaning the caller should trigger an SPF recomputation).
// Accepted LSAs are forwarded out every other interface automatically.
func (d *DB) Accept(lsa LSA, receivedFromNetwork netip.Prefix) (bool, error) {
	if lsa.Originator == d.self {
		return false, nil
	}
	if lsa.TTL == 0 {
		return false, nil
	}
	if lsa.containsHop(d.self) {
		return false, nil
	}

	d.mu.Lock()
	key := procKey{originator: lsa.Originator, seqNum: lsa.SeqNum}
	if _, dup := d.processed[key]; dup {
		d.mu.Unlock()
		return false, nil
	}
	d.processed[key] = struct{}{}

	installed := false
	existing, present := d.entries[lsa.Originator]
	if !present || seqGreaterThan(lsa.SeqNum, existing.SeqNum) {
		d.entries[lsa.Originator] = lsa.clone()
		installed = true
	}
	d.mu.Unlock()

	forwarded := lsa.clone()
	forwarded.TTL--
	forwarded.Path = append(append([]netip.Addr(nil), lsa.Path...), d.self)
	if forwarded.TTL > 0 {
		if err := d.sender.Flood(forwarded, receivedFromNetwork); err != nil {
			return installed, err
		}
	}

	return installed, nil
}

// Originate builds and floods a self-LSA with the given sequence number,
// neighbor snapshot, and advertised prefixes, and installs it into the local
// database as the newest entry for self.
func (d *DB) Originate(seqNum uint32, neighbors []NeighborAdvert, prefixes map[netip.Prefix]RouteState, initialTTL uint8) LSA {
	lsa := LSA{
		Originator:         d.self,
		SeqNum:             seqNum,
		Neighbors:          append([]NeighborAdvert(nil), neighbors...),
		AdvertisedPrefixes: prefixes,
		Path:               nil,
		TTL:                initialTTL,
	}

	d.mu.Lock()
	d.entries[d.self] = lsa.clone()
	d.processed[procKey{originator: d.self, seqNum: seqNum}] = struct{}{}
	d.mu.Unlock()

	// Zero-value Prefix excludes nothing: origination floods out every
	// local interface, unlike a forward which skips the inbound one.
	_ = d.sender.Flood(lsa, netip.Prefix{})
	return lsa
}

// Poison re-originates self's LSA with the given prefix map, which the
// caller has already set to Unreachable for any neighbor whose link just
// dropped. There is no separate poisoning code path: a poisoned prefix is
// just an ordinary self-origination that happens to carry Unreachable for
// one entry, and receivers process it exactly like any other LSA.
func (d *DB) Poison(seqNum uint32, neighbors []NeighborAdvert, prefixes map[netip.Prefix]RouteState, initialTTL uint8) LSA {
	return d.Originate(seqNum, neighbors, prefixes, initialTTL)
}

// Snapshot returns a copy of every LSA currently held, for SPF graph
// construction.
func (d *DB) Snapshot() []LSA {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]LSA, 0, len(d.entries))
	for _, lsa := range d.entries {
		out = append(out, lsa.clone())
	}
	return out
}

// Self returns the local router's own newest LSA and whether one has been
// originated yet.
func (d *DB) Self() (LSA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa, ok := d.entries[d.self]
	return lsa, ok
}
