// Package controlplane wires the UDP socket, the periodic Hello/LSA timers,
// the neighbor scavenger, and the inbound message dispatch together. It is
// the only package that touches the wire format and the encryption layer;
// everything downstream of dispatch sees plain domain types.
package controlplane

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/lgonzales/lsrouted/internal/appstate"
	"github.com/lgonzales/lsrouted/internal/config"
	"github.com/lgonzales/lsrouted/internal/ifaceinv"
	"github.com/lgonzales/lsrouted/internal/logging"
	"github.com/lgonzales/lsrouted/internal/lsdb"
	"github.com/lgonzales/lsrouted/internal/neighbor"
	"github.com/lgonzales/lsrouted/internal/routeinstall"
	"github.com/lgonzales/lsrouted/internal/spf"
	"github.com/lgonzales/lsrouted/internal/transport"
	"github.com/lgonzales/lsrouted/internal/wire"
	"github.com/lgonzales/lsrouted/internal/xcrypt"
)

// Daemon is one running instance of the routing engine.
type Daemon struct {
	self       netip.Addr
	interfaces []ifaceinv.Record
	key        *[32]byte

	socket    transport.Socket
	neighbors *neighbor.Table
	db        *lsdb.DB
	state     *appstate.State
	installer *routeinstall.Installer

	// neighborTimeout is config.NeighborTimeout as a Duration, held as a
	// field (rather than read from config directly) so tests can shrink it
	// instead of racing the real wall clock.
	neighborTimeout time.Duration

	seqNum uint32
}

// New constructs a Daemon bound to the given interfaces and self address.
// key may be nil, in which case datagrams are sent and received in
// plaintext (useful for tests and trusted lab networks). installer may be
// nil to skip kernel route reconciliation entirely (used by tests that only
// care about protocol behavior).
func New(self netip.Addr, interfaces []ifaceinv.Record, key *[32]byte, socket transport.Socket, installer *routeinstall.Installer) *Daemon {
	d := &Daemon{
		self:            self,
		interfaces:      interfaces,
		key:             key,
		socket:          socket,
		neighbors:       neighbor.New(),
		state:           appstate.New(),
		installer:       installer,
		neighborTimeout: config.NeighborTimeout * time.Second,
	}
	d.db = lsdb.New(self, sender{d})
	return d
}

// sender adapts Daemon to lsdb.Sender: flood out every local broadcast
// address whose network isn't excludeFrom.
type sender struct{ d *Daemon }

func (s sender) Flood(lsa lsdb.LSA, excludeFrom netip.Prefix) error {
	payload := toWireLSA(lsa)
	data, err := encode(s.d.key, payload)
	if err != nil {
		return err
	}

	for _, iface := range s.d.interfaces {
		if !iface.LinkUp {
			continue
		}
		if excludeFrom.IsValid() && iface.Network == excludeFrom {
			continue
		}
		addr := &net.UDPAddr{IP: net.IP(iface.Broadcast.AsSlice()), Port: config.Port}
		if err := s.d.socket.SendTo(addr, data); err != nil {
			logging.Warnf("controlplane: flooding to %s: %v", addr, err)
		}
	}
	return nil
}

// Run opens the socket and drives every timer loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	addr, err := d.socket.Open(net.IPv4zero, config.Port)
	if err != nil {
		return err
	}
	logging.Infof("controlplane: listening on %s", addr)

	datagrams := d.socket.Subscribe()

	go d.receiveLoop(ctx, datagrams)
	go d.helloLoop(ctx)
	go d.lsaLoop(ctx)
	go d.scavengeLoop(ctx)
	go d.spfLoop(ctx)

	<-ctx.Done()
	return d.socket.Close()
}

func (d *Daemon) receiveLoop(ctx context.Context, datagrams chan *transport.Datagram) {
	for {
		select {
		case <-ctx.Done():
			return
		case dgram, ok := <-datagrams:
			if !ok {
				return
			}
			d.handleDatagram(dgram)
		}
	}
}

func (d *Daemon) handleDatagram(dgram *transport.Datagram) {
	srcIP, ok := netip.AddrFromSlice(dgram.Addr.IP.To4())
	if !ok || d.isLocal(srcIP) {
		return
	}

	plaintext, err := decode(d.key, dgram.Data)
	if err != nil {
		logging.Debugf("controlplane: dropping undecryptable datagram from %s: %v", dgram.Addr, err)
		return
	}
	if len(plaintext) > config.MaxDatagramBytes {
		logging.Debugf("controlplane: dropping oversized datagram from %s: %d bytes", dgram.Addr, len(plaintext))
		return
	}

	msg, err := wire.Decode(plaintext)
	if err != nil {
		logging.Debugf("controlplane: dropping malformed datagram from %s: %v", dgram.Addr, err)
		return
	}

	switch m := msg.(type) {
	case wire.Hello:
		d.handleHello(srcIP)
	case wire.LSA:
		d.handleLSA(m, srcIP)
	case wire.Control:
		d.handleControl(m, dgram.Addr)
	}
}

func (d *Daemon) isLocal(ip netip.Addr) bool {
	for _, iface := range d.interfaces {
		if iface.IP == ip {
			return true
		}
	}
	return ip == d.self
}

func (d *Daemon) handleHello(peer netip.Addr) {
	if changed := d.neighbors.Observe(peer); changed {
		d.state.NotifyTopologyChanged()
		d.originate(d.poisonedNetworks())
	}
}

func (d *Daemon) handleLSA(wireLSA wire.LSA, receivedFrom netip.Addr) {
	domainLSA, err := fromWireLSA(wireLSA)
	if err != nil {
		logging.Debugf("controlplane: rejecting LSA: %v", err)
		return
	}

	receivedFromNetwork := d.networkOf(receivedFrom)
	installed, err := d.db.Accept(domainLSA, receivedFromNetwork)
	if err != nil {
		logging.Warnf("controlplane: forwarding LSA from %s: %v", domainLSA.Originator, err)
	}
	if installed {
		d.state.NotifyTopologyChanged()
	}
}

func (d *Daemon) networkOf(peer netip.Addr) netip.Prefix {
	for _, iface := range d.interfaces {
		if iface.Network.Contains(peer) {
			return iface.Network
		}
	}
	return netip.Prefix{}
}

// helloLoop broadcasts a Hello out every interface every HelloInterval.
func (d *Daemon) helloLoop(ctx context.Context) {
	ticker := time.NewTicker(config.HelloInterval * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.broadcastHello()
		}
	}
}

func (d *Daemon) broadcastHello() {
	hello := wire.NewHello(d.self.String())
	data, err := encode(d.key, hello)
	if err != nil {
		logging.Warnf("controlplane: encoding hello: %v", err)
		return
	}
	for _, iface := range d.interfaces {
		if !iface.LinkUp {
			continue
		}
		addr := &net.UDPAddr{IP: net.IP(iface.Broadcast.AsSlice()), Port: config.Port}
		if err := d.socket.SendTo(addr, data); err != nil {
			logging.Warnf("controlplane: sending hello to %s: %v", addr, err)
		}
	}
}

// lsaLoop re-originates self's LSA every LSAInterval. Immediate origination
// on a neighbor up/down transition happens in handleHello and scavengeOnce,
// not here.
func (d *Daemon) lsaLoop(ctx context.Context) {
	ticker := time.NewTicker(config.LSAInterval * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.originate(nil)
		}
	}
}

// originate builds the current neighbor snapshot and local prefix map,
// applies any poison overrides (interface networks to advertise as
// Unreachable), and re-originates self's LSA.
func (d *Daemon) originate(poisoned map[netip.Prefix]bool) {
	d.seqNum++
	snapshot := d.neighbors.Snapshot()
	neighbors := make([]lsdb.NeighborAdvert, len(snapshot))
	for i, n := range snapshot {
		neighbors[i] = lsdb.NeighborAdvert{IP: n.IP, LinkUp: n.LinkUp, Capacity: n.Capacity, LastSeen: n.LastSeen}
	}

	prefixes := make(map[netip.Prefix]lsdb.RouteState)
	hasAccessNetwork := false
	for _, iface := range d.interfaces {
		if !iface.LinkUp {
			continue
		}
		if poisoned[iface.Network] {
			prefixes[iface.Network] = lsdb.UnreachableRoute
			continue
		}
		prefixes[iface.Network] = lsdb.ActiveRoute(0)
		if config.AccessNetwork.Contains(iface.IP) {
			hasAccessNetwork = true
		}
	}
	if hasAccessNetwork {
		prefixes[netip.MustParsePrefix("0.0.0.0/0")] = lsdb.ActiveRoute(config.AccessPrefixMetric)
	}

	// db.Originate floods the LSA itself via the Sender this Daemon
	// installed at construction time; no separate send here.
	d.db.Originate(d.seqNum, neighbors, prefixes, config.InitialTTL)
}

// scavengeLoop sweeps the neighbor table for silent peers twice as often as
// NeighborTimeout, per the scavenger's own half-timeout cadence.
func (d *Daemon) scavengeLoop(ctx context.Context) {
	ticker := time.NewTicker(config.NeighborTimeout * time.Second / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scavengeOnce()
		}
	}
}

// scavengeOnce runs one scavenger sweep. If any neighbor flipped down, it
// both schedules an SPF recomputation (so this node withdraws kernel routes
// through the now-silent neighbor) and re-originates a poisoned LSA for the
// affected link.
func (d *Daemon) scavengeOnce() {
	if d.neighbors.Scavenge(d.neighborTimeout) {
		d.state.NotifyTopologyChanged()
		d.originate(d.poisonedNetworks())
	}
}

// poisonedNetworks returns the interface networks whose corresponding
// neighbor is currently down, for the next self-origination to mark
// Unreachable.
func (d *Daemon) poisonedNetworks() map[netip.Prefix]bool {
	down := make(map[netip.Addr]bool)
	for _, n := range d.neighbors.Snapshot() {
		if !n.LinkUp {
			down[n.IP] = true
		}
	}

	poisoned := make(map[netip.Prefix]bool)
	for _, iface := range d.interfaces {
		for ip := range down {
			if iface.Network.Contains(ip) {
				poisoned[iface.Network] = true
			}
		}
	}
	return poisoned
}

// spfLoop recomputes the routing table on every coalesced topology-change
// signal and hands the result to the caller-installed reconciler.
func (d *Daemon) spfLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.state.TopologyChanged:
			routes := spf.Compute(d.self, d.neighbors.Snapshot(), d.db.Snapshot())
			d.state.RoutingTable.Set(routes)
			if d.installer != nil {
				d.installer.Reconcile(toInstallerRoutes(routes))
			}
		}
	}
}

// toInstallerRoutes drops Unreachable candidates: route derivation in
// internal/spf never emits them (see Compute), but this stays defensive
// against future callers that might.
func toInstallerRoutes(routes []spf.Route) []routeinstall.Route {
	out := make([]routeinstall.Route, 0, len(routes))
	for _, r := range routes {
		if !r.State.Active {
			continue
		}
		out = append(out, routeinstall.Route{Prefix: r.Prefix, NextHop: r.NextHop})
	}
	return out
}

// RoutingTable returns the latest computed routing table.
func (d *Daemon) RoutingTable() []spf.Route {
	return d.state.RoutingTable.Get()
}

// Neighbors returns a snapshot of the neighbor table, for the "neighbors"
// control command.
func (d *Daemon) Neighbors() []neighbor.Entry {
	return d.neighbors.Snapshot()
}

func encode(key *[32]byte, v any) ([]byte, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return data, nil
	}
	return xcrypt.Encrypt(data, key)
}

func decode(key *[32]byte, data []byte) ([]byte, error) {
	if key == nil {
		return data, nil
	}
	return xcrypt.Decrypt(data, key)
}
