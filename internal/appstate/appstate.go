// Package appstate owns the daemon's shared mutable state — the current
// routing table snapshot and the coalescing "topology changed" signal that
// ties the neighbor table, LSDB, and SPF engine together.
package appstate

import (
	"sync"

	"github.com/lgonzales/lsrouted/internal/spf"
)

// RoutingTableBox is a concurrency-safe holder for the latest SPF output,
// read by the control-plane's reply handler and written by the SPF trigger
// loop.
type RoutingTableBox struct {
	mu     sync.RWMutex
	routes []spf.Route
}

func (b *RoutingTableBox) Set(routes []spf.Route) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes = routes
}

func (b *RoutingTableBox) Get() []spf.Route {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]spf.Route, len(b.routes))
	copy(out, b.routes)
	return out
}

// State bundles the routing table snapshot and the topology-changed signal
// shared by the control plane's loops. The neighbor table and the LSDB are
// held by the control plane itself and guard themselves; RoutingTableBox
// owns its own mutex, and this struct holds no lock of its own.
type State struct {
	RoutingTable *RoutingTableBox

	// TopologyChanged is a capacity-1, non-blocking-send signal: any number
	// of producers (Hello-driven up/down transitions, LSA acceptance,
	// scavenger sweeps) can post to it, and a backed-up consumer still only
	// sees one pending recomputation instead of a queue of them.
	TopologyChanged chan struct{}
}

func New() *State {
	return &State{
		RoutingTable:    &RoutingTableBox{},
		TopologyChanged: make(chan struct{}, 1),
	}
}

// NotifyTopologyChanged schedules an SPF recomputation without blocking the
// caller and without piling up redundant signals.
func (s *State) NotifyTopologyChanged() {
	select {
	case s.TopologyChanged <- struct{}{}:
	default:
	}
}
