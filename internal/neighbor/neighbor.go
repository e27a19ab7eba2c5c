// Package neighbor tracks per-peer liveness, advertised capacity, and
// last-seen timestamps, and raises up/down transitions as topology-change
// events for the LSA originator to act on.
package neighbor

import (
	"net/netip"
	"sync"
	"time"

	"github.com/lgonzales/lsrouted/internal/config"
)

// Entry is one neighbor-table row, keyed by its IP in Table.
type Entry struct {
	IP       netip.Addr
	LinkUp   bool
	Capacity uint32
	LastSeen int64 // unix seconds
}

// Table is a concurrency-safe neighbor table. The zero value is not usable;
// construct with New.
type Table struct {
	mu      sync.Mutex
	entries map[netip.Addr]Entry
	now     func() time.Time
}

func New() *Table {
	return &Table{
		entries: make(map[netip.Addr]Entry),
		now:     time.Now,
	}
}

// Observe records a Hello from peer. It returns true if this observation is
// a topology change (new neighbor, or a down→up transition) that warrants an
// immediate LSA re-origination.
func (t *Table) Observe(peer netip.Addr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().Unix()
	entry, present := t.entries[peer]
	if !present {
		t.entries[peer] = Entry{
			IP:       peer,
			LinkUp:   true,
			Capacity: config.DefaultCapacityMbps,
			LastSeen: now,
		}
		return true
	}

	changed := !entry.LinkUp
	entry.LastSeen = now
	entry.LinkUp = true
	t.entries[peer] = entry
	return changed
}

// Scavenge walks the table and marks any entry silent for longer than
// timeout as down. It returns true if any entry changed, so the caller can
// decide whether to re-originate an LSA.
func (t *Table) Scavenge(timeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().Unix()
	changed := false
	for ip, entry := range t.entries {
		if entry.LinkUp && now-entry.LastSeen > int64(timeout.Seconds()) {
			entry.LinkUp = false
			t.entries[ip] = entry
			changed = true
		}
	}
	return changed
}

// Snapshot returns a copy of every entry, safe for a reader to use (e.g. for
// SPF graph construction or LSA origination) without holding the table's
// lock.
func (t *Table) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	return out
}
