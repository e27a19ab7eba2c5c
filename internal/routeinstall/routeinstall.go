// Package routeinstall reconciles the computed routing table against the
// kernel's IPv4 route table, so that the set of daemon-managed kernel
// entries always equals the latest SPF output.
package routeinstall

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/vishvananda/netlink"

	"github.com/lgonzales/lsrouted/internal/logging"
	"github.com/lgonzales/lsrouted/internal/xerrors"
)

// kernelTimeout bounds every individual netlink call; a call that does not
// return in time is treated as a failure and retried on the next
// reconciliation.
const kernelTimeout = 2 * time.Second

var limitedBroadcast = netip.MustParseAddr("255.255.255.255")

// netlinkClient is the subset of vishvananda/netlink this package needs,
// narrowed to an interface so tests can inject a fake kernel.
type netlinkClient interface {
	RouteAdd(route *netlink.Route) error
	RouteDel(route *netlink.Route) error
}

type realNetlink struct{}

func (realNetlink) RouteAdd(route *netlink.Route) error { return netlink.RouteAdd(route) }
func (realNetlink) RouteDel(route *netlink.Route) error { return netlink.RouteDel(route) }

// Route is the installer's view of one routing-table entry: a prefix
// reachable via a next hop, or absent/unreachable (see Reconcile).
type Route struct {
	Prefix  netip.Prefix
	NextHop netip.Addr
}

// Installer owns the prior snapshot of daemon-managed kernel routes and
// reconciles it against each new SPF result.
type Installer struct {
	client   netlinkClient
	previous map[netip.Prefix]Route
}

func New() *Installer {
	return &Installer{
		client:   realNetlink{},
		previous: make(map[netip.Prefix]Route),
	}
}

// Reconcile installs or replaces every route in desired, and withdraws any
// route present in the prior snapshot but absent from desired. Individual
// kernel failures are logged and do not abort the rest of the batch; the
// next Reconcile call will retry them.
func (ins *Installer) Reconcile(desired []Route) {
	desiredByPrefix := make(map[netip.Prefix]Route, len(desired))

	for _, route := range desired {
		if err := validate(route); err != nil {
			logging.Warnf("routeinstall: rejecting %s: %v", route.Prefix, err)
			continue
		}
		desiredByPrefix[route.Prefix] = route

		if err := ins.addWithReplace(route); err != nil {
			logging.Warnf("routeinstall: installing %s via %s: %v", route.Prefix, route.NextHop, err)
			continue
		}
		ins.previous[route.Prefix] = route
	}

	for prefix, stale := range ins.previous {
		if _, stillDesired := desiredByPrefix[prefix]; stillDesired {
			continue
		}
		if err := ins.withdraw(stale); err != nil {
			logging.Warnf("routeinstall: withdrawing %s: %v", prefix, err)
			continue
		}
		delete(ins.previous, prefix)
	}
}

func validate(route Route) error {
	if route.Prefix.Bits() < 0 {
		return fmt.Errorf("%w: prefix %s has no mask", xerrors.ErrRoute, route.Prefix)
	}
	if !route.NextHop.IsValid() || route.NextHop.IsLoopback() || route.NextHop.IsUnspecified() {
		return fmt.Errorf("%w: gateway %s is loopback or unspecified", xerrors.ErrRoute, route.NextHop)
	}
	if route.NextHop == limitedBroadcast {
		return fmt.Errorf("%w: gateway %s is a broadcast address", xerrors.ErrRoute, route.NextHop)
	}
	return nil
}

// addWithReplace tries a plain add; on failure (e.g. an existing route with
// a different next hop occupies the prefix) it deletes the stale entry and
// retries the add once.
func (ins *Installer) addWithReplace(route Route) error {
	bounded := func(fn func() error) error {
		ctx, cancel := context.WithTimeout(context.Background(), kernelTimeout)
		defer cancel()
		return withTimeout(ctx, fn)
	}

	nl := toNetlinkRoute(route)
	if err := bounded(func() error { return ins.client.RouteAdd(nl) }); err == nil {
		return nil
	}

	if err := bounded(func() error { return ins.client.RouteDel(nl) }); err != nil {
		return fmt.Errorf("%w: deleting stale route before replace: %v", xerrors.ErrRoute, err)
	}
	if err := bounded(func() error { return ins.client.RouteAdd(nl) }); err != nil {
		return fmt.Errorf("%w: add-with-replace failed: %v", xerrors.ErrRoute, err)
	}
	return nil
}

func (ins *Installer) withdraw(route Route) error {
	ctx, cancel := context.WithTimeout(context.Background(), kernelTimeout)
	defer cancel()

	nl := toNetlinkRoute(route)
	if err := withTimeout(ctx, func() error { return ins.client.RouteDel(nl) }); err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrRoute, err)
	}
	return nil
}

func toNetlinkRoute(route Route) *netlink.Route {
	ip := route.Prefix.Addr().AsSlice()
	ones := route.Prefix.Bits()
	return &netlink.Route{
		Dst: &net.IPNet{
			IP:   ip,
			Mask: net.CIDRMask(ones, len(ip)*8),
		},
		Gw: net.IP(route.NextHop.AsSlice()),
	}
}

// withTimeout runs fn and returns its error, or a timeout error if ctx
// expires first. netlink calls are synchronous syscalls with no native
// context support, so this bounds a hung call rather than cancelling it.
func withTimeout(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
