package appstate

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lgonzales/lsrouted/internal/lsdb"
	"github.com/lgonzales/lsrouted/internal/spf"
)

func TestRoutingTableBoxGetReturnsACopy(t *testing.T) {
	box := &RoutingTableBox{}
	routes := []spf.Route{
		{Prefix: netip.MustParsePrefix("10.0.0.0/24"), State: lsdb.ActiveRoute(1)},
	}
	box.Set(routes)

	got := box.Get()
	got[0].State = lsdb.ActiveRoute(99)

	require.Equal(t, uint32(1), box.Get()[0].State.Metric, "mutating the returned slice must not affect the box")
}

func TestNotifyTopologyChangedCoalescesBurstsIntoOneSignal(t *testing.T) {
	s := New()

	s.NotifyTopologyChanged()
	s.NotifyTopologyChanged()
	s.NotifyTopologyChanged()

	require.Len(t, s.TopologyChanged, 1, "a burst of notifications must coalesce to a single pending recomputation")

	<-s.TopologyChanged
	require.Len(t, s.TopologyChanged, 0)
}

func TestNotifyTopologyChangedAfterDrainSignalsAgain(t *testing.T) {
	s := New()
	s.NotifyTopologyChanged()
	<-s.TopologyChanged

	s.NotifyTopologyChanged()
	require.Len(t, s.TopologyChanged, 1)
}
