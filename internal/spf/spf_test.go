package spf

import (
	"math"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lgonzales/lsrouted/internal/lsdb"
	"github.com/lgonzales/lsrouted/internal/neighbor"
)

var (
	rA = netip.MustParseAddr("10.0.0.1")
	rB = netip.MustParseAddr("10.0.0.2")
	rC = netip.MustParseAddr("10.0.0.3")
)

func TestEdgeCostDownLinkIsMax(t *testing.T) {
	require.Equal(t, uint32(math.MaxUint32), edgeCost(100, false))
}

func TestEdgeCostZeroCapacityIsMax(t *testing.T) {
	require.Equal(t, uint32(math.MaxUint32), edgeCost(0, true))
}

func TestEdgeCostFloorsAtOne(t *testing.T) {
	// A capacity far exceeding the reference bandwidth still costs at
	// least 1, never 0.
	require.Equal(t, uint32(1), edgeCost(1_000_000, true))
}

func TestEdgeCostReferenceCapacityCostsOne(t *testing.T) {
	require.Equal(t, uint32(1), edgeCost(100, true))
}

func TestEdgeCostLowCapacityCostsMore(t *testing.T) {
	require.Equal(t, uint32(100), edgeCost(1, true))
}

func TestSaturatingAddSaturatesAtMax(t *testing.T) {
	require.Equal(t, uint32(math.MaxUint32), saturatingAdd(math.MaxUint32, 1))
	require.Equal(t, uint32(3), saturatingAdd(1, 2))
}

func TestComputeTwoNodeConvergence(t *testing.T) {
	selfNeighbors := []neighbor.Entry{
		{IP: rB, LinkUp: true, Capacity: 100},
	}
	remoteLSA := lsdb.LSA{
		Originator: rB,
		Neighbors: []lsdb.NeighborAdvert{
			{IP: rA, LinkUp: true, Capacity: 100},
		},
		AdvertisedPrefixes: map[netip.Prefix]lsdb.RouteState{
			netip.MustParsePrefix("10.0.1.0/24"): lsdb.ActiveRoute(0),
		},
	}

	routes := Compute(rA, selfNeighbors, []lsdb.LSA{remoteLSA})

	require.Len(t, routes, 1)
	require.Equal(t, netip.MustParsePrefix("10.0.1.0/24"), routes[0].Prefix)
	require.Equal(t, rB, routes[0].NextHop)
	require.True(t, routes[0].State.Active)
	require.Equal(t, uint32(1), routes[0].State.Metric)
}

func TestComputeExcludesSelfOriginatedPrefixes(t *testing.T) {
	selfLSA := lsdb.LSA{
		Originator: rA,
		AdvertisedPrefixes: map[netip.Prefix]lsdb.RouteState{
			netip.MustParsePrefix("10.0.0.0/24"): lsdb.ActiveRoute(0),
		},
	}

	routes := Compute(rA, nil, []lsdb.LSA{selfLSA})
	require.Empty(t, routes)
}

func TestComputeIgnoresUnreachablePrefixFromOriginator(t *testing.T) {
	selfNeighbors := []neighbor.Entry{
		{IP: rB, LinkUp: true, Capacity: 100},
	}
	remoteLSA := lsdb.LSA{
		Originator: rB,
		AdvertisedPrefixes: map[netip.Prefix]lsdb.RouteState{
			netip.MustParsePrefix("10.0.1.0/24"): lsdb.UnreachableRoute,
		},
	}

	routes := Compute(rA, selfNeighbors, []lsdb.LSA{remoteLSA})
	require.Empty(t, routes)
}

func TestComputePrefersLowerTotalCostOverHopCount(t *testing.T) {
	// A: direct high-cost link to C (low capacity, single hop) vs. via B
	// with two cheap hops. Lower total cost wins regardless of hop count.
	selfNeighbors := []neighbor.Entry{
		{IP: rB, LinkUp: true, Capacity: 100}, // cost 1
		{IP: rC, LinkUp: true, Capacity: 1},   // cost 100, direct
	}
	bLSA := lsdb.LSA{
		Originator: rB,
		Neighbors: []lsdb.NeighborAdvert{
			{IP: rA, LinkUp: true, Capacity: 100},
			{IP: rC, LinkUp: true, Capacity: 100},
		},
	}
	cLSA := lsdb.LSA{
		Originator: rC,
		Neighbors: []lsdb.NeighborAdvert{
			{IP: rA, LinkUp: true, Capacity: 1},
			{IP: rB, LinkUp: true, Capacity: 100},
		},
		AdvertisedPrefixes: map[netip.Prefix]lsdb.RouteState{
			netip.MustParsePrefix("10.0.2.0/24"): lsdb.ActiveRoute(0),
		},
	}

	routes := Compute(rA, selfNeighbors, []lsdb.LSA{bLSA, cLSA})
	require.Len(t, routes, 1)
	require.Equal(t, rB, routes[0].NextHop, "two cheap hops (cost 2) should beat one expensive hop (cost 100)")
	require.Equal(t, uint32(2), routes[0].State.Metric)
}

func TestComputeUsesMinCapacityOfBothEndpoints(t *testing.T) {
	// Self advertises 100 Mbps toward B, but B only advertises 1 Mbps back;
	// the edge cost must use the lower (bottleneck) figure.
	selfNeighbors := []neighbor.Entry{
		{IP: rB, LinkUp: true, Capacity: 100},
	}
	bLSA := lsdb.LSA{
		Originator: rB,
		Neighbors: []lsdb.NeighborAdvert{
			{IP: rA, LinkUp: true, Capacity: 1},
		},
		AdvertisedPrefixes: map[netip.Prefix]lsdb.RouteState{
			netip.MustParsePrefix("10.0.1.0/24"): lsdb.ActiveRoute(0),
		},
	}

	routes := Compute(rA, selfNeighbors, []lsdb.LSA{bLSA})
	require.Len(t, routes, 1)
	require.Equal(t, uint32(100), routes[0].State.Metric, "cost must reflect the 1 Mbps bottleneck, not the 100 Mbps side")
}
