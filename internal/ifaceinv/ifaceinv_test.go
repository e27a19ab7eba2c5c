package ifaceinv

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lgonzales/lsrouted/internal/config"
)

func TestBroadcastAddrComputesHostBitsAllOnes(t *testing.T) {
	cases := []struct {
		prefix string
		want   string
	}{
		{"192.168.1.0/24", "192.168.1.255"},
		{"10.0.0.0/30", "10.0.0.3"},
		{"172.16.5.4/31", "172.16.5.5"},
		{"203.0.113.7/32", "203.0.113.7"},
	}

	for _, c := range cases {
		prefix := netip.MustParsePrefix(c.prefix)
		got := broadcastAddr(prefix)
		require.Equal(t, netip.MustParseAddr(c.want), got, "prefix %s", c.prefix)
	}
}

func TestEnumerateReportsMissingInterfaceAsLinkDown(t *testing.T) {
	specs := []config.InterfaceSpec{
		{Name: "nonexistent-iface-xyz", CapacityMbps: 100, LinkActive: true},
	}

	records, err := Enumerate(specs)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].LinkUp)
	require.Equal(t, uint32(100), records[0].CapacityMbps)
}

func TestEnumerateHonorsConfiguredLinkActiveFalse(t *testing.T) {
	// Even if the host interface happens to exist and be administratively up,
	// a config-level LinkActive=false should force the record down; this is
	// exercised indirectly via the missing-interface path above, and directly
	// here for any loopback-like interface present in the test environment.
	specs := []config.InterfaceSpec{
		{Name: "lo", CapacityMbps: 1000, LinkActive: false},
	}

	records, err := Enumerate(specs)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].LinkUp)
}
