// Package spf builds a weighted graph from the link-state database and runs
// Dijkstra from the local router to derive the authoritative routing table.
package spf

import (
	"container/heap"
	"math"
	"net/netip"

	"github.com/lgonzales/lsrouted/internal/config"
	"github.com/lgonzales/lsrouted/internal/lsdb"
	"github.com/lgonzales/lsrouted/internal/neighbor"
)

// Route is one computed routing-table entry.
type Route struct {
	Prefix  netip.Prefix
	NextHop netip.Addr
	State   lsdb.RouteState
}

type edge struct {
	cost     uint32
	capacity uint32
}

type graph map[netip.Addr]map[netip.Addr]edge

func (g graph) addEdge(a, b netip.Addr, e edge) {
	if g[a] == nil {
		g[a] = make(map[netip.Addr]edge)
	}
	if g[b] == nil {
		g[b] = make(map[netip.Addr]edge)
	}
	g[a][b] = e
	g[b][a] = e
}

// edgeCost implements the capacity-to-cost formula: an unreachable or
// zero-capacity link costs u32 max; otherwise cost is the reference
// bandwidth divided by the link's capacity, floored at 1 and saturated at
// u32 max.
func edgeCost(capacityMbps uint32, up bool) uint32 {
	if !up || capacityMbps == 0 {
		return math.MaxUint32
	}
	bps := uint64(capacityMbps) * 1_000_000
	raw := uint64(config.ReferenceBwBps) / bps
	if raw < 1 {
		raw = 1
	}
	if raw > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(raw)
}

func saturatingAdd(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(sum)
}

// buildGraph unions the self neighbor table and every LSDB entry's neighbor
// list into an undirected capacity graph. When both endpoints of an edge
// advertise a capacity, the edge cost uses the lower (min) of the two; when
// only one side has converged an advertisement for it yet, that side's
// figure is used alone.
func buildGraph(self netip.Addr, selfNeighbors []neighbor.Entry, lsas []lsdb.LSA) graph {
	type advertKey struct{ from, to netip.Addr }
	advertised := make(map[advertKey]uint32)

	for _, n := range selfNeighbors {
		if n.LinkUp {
			advertised[advertKey{self, n.IP}] = n.Capacity
		}
	}
	for _, lsa := range lsas {
		for _, n := range lsa.Neighbors {
			if n.LinkUp {
				advertised[advertKey{lsa.Originator, n.IP}] = n.Capacity
			}
		}
	}

	g := make(graph)
	seen := make(map[advertKey]bool)
	for k, capA := range advertised {
		lo, hi := k.from, k.to
		if hi.Less(lo) {
			lo, hi = hi, lo
		}
		canon := advertKey{lo, hi}
		if seen[canon] {
			continue
		}
		seen[canon] = true

		capacity := capA
		if capB, ok := advertised[advertKey{k.to, k.from}]; ok {
			capacity = min(capA, capB)
		}
		g.addEdge(k.from, k.to, edge{cost: edgeCost(capacity, true), capacity: capacity})
	}
	return g
}

// node is a Dijkstra priority-queue entry. The ordering implements the
// lexicographic tie-break: lower total cost first, then lower hop count,
// then higher bottleneck capacity.
type node struct {
	addr       netip.Addr
	totalCost  uint32
	hops       uint32
	bottleneck uint32
	firstHop   netip.Addr
}

type nodeHeap []node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.totalCost != b.totalCost {
		return a.totalCost < b.totalCost
	}
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	return a.bottleneck > b.bottleneck
}
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	last := old[n-1]
	*h = old[:n-1]
	return last
}

// Result is the shortest-path outcome for one reachable node.
type Result struct {
	Cost       uint32
	Hops       uint32
	Bottleneck uint32
	NextHop    netip.Addr
}

// shortestPaths runs Dijkstra from self over g, returning the best Result
// for every node reachable other than self.
func shortestPaths(self netip.Addr, g graph) map[netip.Addr]Result {
	best := make(map[netip.Addr]Result)
	pq := &nodeHeap{{addr: self, totalCost: 0, hops: 0, bottleneck: math.MaxUint32}}
	heap.Init(pq)

	visited := make(map[netip.Addr]bool)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(node)
		if visited[cur.addr] {
			continue
		}
		visited[cur.addr] = true

		if cur.addr != self {
			best[cur.addr] = Result{
				Cost:       cur.totalCost,
				Hops:       cur.hops,
				Bottleneck: cur.bottleneck,
				NextHop:    cur.firstHop,
			}
		}

		for neighborAddr, e := range g[cur.addr] {
			if visited[neighborAddr] {
				continue
			}
			firstHop := cur.firstHop
			if cur.addr == self {
				firstHop = neighborAddr
			}
			heap.Push(pq, node{
				addr:       neighborAddr,
				totalCost:  saturatingAdd(cur.totalCost, e.cost),
				hops:       cur.hops + 1,
				bottleneck: min(cur.bottleneck, e.capacity),
				firstHop:   firstHop,
			})
		}
	}
	return best
}

// Compute derives the full routing table from self's neighbor table and the
// link-state database. Self's own advertised prefixes are excluded: they
// are directly connected and need no daemon-managed kernel route.
func Compute(self netip.Addr, selfNeighbors []neighbor.Entry, lsas []lsdb.LSA) []Route {
	g := buildGraph(self, selfNeighbors, lsas)
	paths := shortestPaths(self, g)

	type candidate struct {
		metric  uint32
		nextHop netip.Addr
	}
	best := make(map[netip.Prefix]candidate)

	for _, lsa := range lsas {
		if lsa.Originator == self {
			continue
		}
		result, reachable := paths[lsa.Originator]
		if !reachable {
			continue
		}
		for prefix, state := range lsa.AdvertisedPrefixes {
			if !state.Active {
				continue
			}
			total := saturatingAdd(result.Cost, state.Metric)
			if existing, ok := best[prefix]; !ok || total < existing.metric {
				best[prefix] = candidate{metric: total, nextHop: result.NextHop}
			}
		}
	}

	routes := make([]Route, 0, len(best))
	for prefix, c := range best {
		routes = append(routes, Route{
			Prefix:  prefix,
			NextHop: c.nextHop,
			State:   lsdb.ActiveRoute(c.metric),
		})
	}
	return routes
}
