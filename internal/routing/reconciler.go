// Package routing implements the Route Reconciler: it diffs a desired route
// table against the kernel/forwarding table and applies the minimal set of
// changes, subject to a fail-safe subnet constraint.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
)

// ForwardingTable is the abstract interface the Reconciler is specified
// against. Any implementation — shelling out to a route utility, netlink,
// a platform API — that honors these three primitives satisfies the
// contract. IPRouteTable (forwardingtable.go) is the one concrete
// implementation this repo ships.
type ForwardingTable interface {
	// Read returns the host routes currently bound to the configured
	// interface: destination -> next-hop, or "direct" for a route with no
	// explicit next-hop. Failures yield an empty map, never an error —
	// they are not fatal to the caller.
	Read(ctx context.Context) map[string]string

	// Replace idempotently adds or updates a host route to dst via
	// nextHop. Returns sdwanerr.ErrForwardingCommandFailure on non-zero
	// exit or timeout.
	Replace(ctx context.Context, dst, nextHop string) error

	// Delete removes the host route to dst. A "route does not exist"
	// failure must be treated as success by the implementation.
	Delete(ctx context.Context, dst string) error
}

// RouteDiff is the three-way split between a desired and current route table.
type RouteDiff struct {
	Add    map[string]string // keys in desired \ current
	Modify map[string]string // keys in desired ∩ current, next-hop differs
	Delete []string          // keys in current \ desired
}

// SyncResult aggregates per-entry outcomes of one sync pass. A partial
// failure does not abort the pass.
type SyncResult struct {
	Applied []string
	Failed  map[string]error
}

// Reconciler owns the allowed overlay subnet constraint and talks to a
// ForwardingTable implementation.
type Reconciler struct {
	log       *slog.Logger
	table     ForwardingTable
	iface     string
	allowedCIDR netip.Prefix
}

// New constructs a Reconciler bound to iface and allowedSubnet (CIDR).
func New(log *slog.Logger, table ForwardingTable, iface, allowedSubnet string) (*Reconciler, error) {
	prefix, err := netip.ParsePrefix(allowedSubnet)
	if err != nil {
		return nil, fmt.Errorf("routing: invalid allowed subnet %q: %v: %w", allowedSubnet, err, sdwanerr.ErrInvalidArgument)
	}
	return &Reconciler{log: log, table: table, iface: iface, allowedCIDR: prefix}, nil
}

// inSubnet reports whether host lies within the allowed overlay subnet.
func (r *Reconciler) inSubnet(host string) bool {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return r.allowedCIDR.Contains(ip)
}

// Diff computes the three-way split between a desired and current route
// table.
func Diff(desired, current map[string]string) RouteDiff {
	d := RouteDiff{Add: map[string]string{}, Modify: map[string]string{}}
	for dst, nh := range desired {
		cur, ok := current[dst]
		if !ok {
			d.Add[dst] = nh
			continue
		}
		if cur != nh {
			d.Modify[dst] = nh
		}
	}
	for dst := range current {
		if _, ok := desired[dst]; !ok {
			d.Delete = append(d.Delete, dst)
		}
	}
	return d
}

// Apply issues the forwarding-table command for a single (dst, nextHop)
// pair, enforcing the subnet safety constraint before any command is
// issued.
func (r *Reconciler) Apply(ctx context.Context, dst, nextHop string) error {
	if !r.inSubnet(dst) {
		return fmt.Errorf("routing: destination %s outside allowed subnet %s: %w", dst, r.allowedCIDR, sdwanerr.ErrSubnetViolation)
	}
	if nextHop == telemetry.DirectNextHop {
		return r.table.Delete(ctx, dst)
	}
	if !r.inSubnet(nextHop) {
		return fmt.Errorf("routing: next-hop %s outside allowed subnet %s: %w", nextHop, r.allowedCIDR, sdwanerr.ErrSubnetViolation)
	}
	return r.table.Replace(ctx, dst, nextHop)
}

// Sync computes the diff against the table's current state and applies
// ADD, then MODIFY, then DELETE — additions first so traffic migrates to
// the new relay before the old route disappears, deletions last to avoid
// transient black-holing.
func (r *Reconciler) Sync(ctx context.Context, desired map[string]string) SyncResult {
	current := r.table.Read(ctx)
	diff := Diff(desired, current)

	result := SyncResult{Failed: map[string]error{}}

	apply := func(dst, nextHop string) {
		if err := r.Apply(ctx, dst, nextHop); err != nil {
			r.log.Warn("routing: sync entry failed", "dst", dst, "next_hop", nextHop, "error", err)
			result.Failed[dst] = err
			return
		}
		result.Applied = append(result.Applied, dst)
	}

	for dst, nh := range diff.Add {
		apply(dst, nh)
	}
	for dst, nh := range diff.Modify {
		apply(dst, nh)
	}
	for _, dst := range diff.Delete {
		apply(dst, telemetry.DirectNextHop)
	}

	r.log.Info("routing: sync complete",
		"added", len(diff.Add), "modified", len(diff.Modify), "deleted", len(diff.Delete),
		"failed", len(result.Failed))
	return result
}

// FlushAll drops every overlay route currently owned by the reconciler.
// Invoked by the coordinator when entering fallback.
func (r *Reconciler) FlushAll(ctx context.Context) SyncResult {
	current := r.table.Read(ctx)
	result := SyncResult{Failed: map[string]error{}}
	for dst := range current {
		if err := r.Apply(ctx, dst, telemetry.DirectNextHop); err != nil {
			result.Failed[dst] = err
			continue
		}
		result.Applied = append(result.Applied, dst)
	}
	r.log.Info("routing: flushed all routes", "count", len(result.Applied), "failed", len(result.Failed))
	return result
}

// normalizeHostDest strips a /32 suffix if present, used by ForwardingTable
// implementations when parsing `ip route` output.
func normalizeHostDest(dst string) (string, bool) {
	if ip, ipnet, err := net.ParseCIDR(dst); err == nil {
		ones, bits := ipnet.Mask.Size()
		if ones != bits {
			return "", false // not a /32 (or /128): not a host route
		}
		return ip.String(), true
	}
	if ip := net.ParseIP(dst); ip != nil {
		return ip.String(), true
	}
	return "", false
}
