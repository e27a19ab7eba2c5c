package lsdb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	floods []floodCall
}

type floodCall struct {
	lsa         LSA
	excludeFrom netip.Prefix
}

func (f *fakeSender) Flood(lsa LSA, excludeFrom netip.Prefix) error {
	f.floods = append(f.floods, floodCall{lsa: lsa, excludeFrom: excludeFrom})
	return nil
}

var (
	self   = netip.MustParseAddr("10.0.0.1")
	peer   = netip.MustParseAddr("10.0.0.2")
	origin = netip.MustParseAddr("10.0.0.3")
	net1   = netip.MustParsePrefix("10.0.0.0/24")
)

func baseLSA() LSA {
	return LSA{
		Originator: origin,
		SeqNum:     5,
		TTL:        64,
	}
}

func TestAcceptInstallsNewOriginatorAndForwards(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	installed, err := db.Accept(baseLSA(), net1)
	require.NoError(t, err)
	require.True(t, installed)
	require.Len(t, sender.floods, 1)
	require.Equal(t, uint8(63), sender.floods[0].lsa.TTL)
	require.Equal(t, []netip.Addr{self}, sender.floods[0].lsa.Path)
	require.Equal(t, net1, sender.floods[0].excludeFrom)
}

func TestAcceptDiscardsOwnLSA(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	lsa := baseLSA()
	lsa.Originator = self

	installed, err := db.Accept(lsa, net1)
	require.NoError(t, err)
	require.False(t, installed)
	require.Empty(t, sender.floods)
}

func TestAcceptDiscardsDuplicateSeq(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	lsa := baseLSA()
	_, err := db.Accept(lsa, net1)
	require.NoError(t, err)

	installed, err := db.Accept(lsa, net1)
	require.NoError(t, err)
	require.False(t, installed, "same (originator, seq) must not re-install or re-forward")
	require.Len(t, sender.floods, 1, "duplicate must not be forwarded again")
}

func TestAcceptDiscardsOnSplitHorizon(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	lsa := baseLSA()
	lsa.Path = []netip.Addr{peer, self}

	installed, err := db.Accept(lsa, net1)
	require.NoError(t, err)
	require.False(t, installed)
	require.Empty(t, sender.floods)
}

func TestAcceptDiscardsOnZeroTTL(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	lsa := baseLSA()
	lsa.TTL = 0

	installed, err := db.Accept(lsa, net1)
	require.NoError(t, err)
	require.False(t, installed)
	require.Empty(t, sender.floods)
}

func TestAcceptDoesNotForwardWhenTTLReachesZero(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	lsa := baseLSA()
	lsa.TTL = 1

	installed, err := db.Accept(lsa, net1)
	require.NoError(t, err)
	require.True(t, installed, "still installed into the local db")
	require.Empty(t, sender.floods, "but not forwarded, since ttl-1 == 0")
}

func TestAcceptReplacesOnlyOnHigherSeqNum(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	older := baseLSA()
	older.SeqNum = 10
	_, err := db.Accept(older, net1)
	require.NoError(t, err)

	stale := baseLSA()
	stale.SeqNum = 9
	installed, err := db.Accept(stale, net1)
	require.NoError(t, err)
	require.False(t, installed, "lower seq must not replace the newer entry")

	snap := db.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, uint32(10), snap[0].SeqNum)
}

func TestSeqGreaterThanHandlesWraparound(t *testing.T) {
	require.True(t, seqGreaterThan(1, 0))
	require.False(t, seqGreaterThan(0, 1))
	// Wraparound: a small number following the max value is still "greater".
	require.True(t, seqGreaterThan(0, 4294967295))
	require.False(t, seqGreaterThan(4294967295, 0))
}

func TestOriginateInstallsAndFloodsWithEmptyPathAndFullTTL(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	prefixes := map[netip.Prefix]RouteState{
		net1: ActiveRoute(0),
	}
	lsa := db.Originate(100, nil, prefixes, 64)

	require.Equal(t, self, lsa.Originator)
	require.Empty(t, lsa.Path)
	require.Equal(t, uint8(64), lsa.TTL)
	require.Len(t, sender.floods, 1)
	require.Equal(t, netip.Prefix{}, sender.floods[0].excludeFrom)

	stored, ok := db.Self()
	require.True(t, ok)
	require.Equal(t, uint32(100), stored.SeqNum)
}

func TestPoisonBehavesIdenticallyToOriginate(t *testing.T) {
	sender := &fakeSender{}
	db := New(self, sender)

	prefixes := map[netip.Prefix]RouteState{
		net1: UnreachableRoute,
	}
	lsa := db.Poison(200, nil, prefixes, 64)

	require.Equal(t, self, lsa.Originator)
	require.Equal(t, UnreachableRoute, lsa.AdvertisedPrefixes[net1])
	require.Len(t, sender.floods, 1)
}
