// Package lease hands out addresses from an IPv4 and an IPv6 prefix to
// protocol peers and tracks when those grants run out.
package lease

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/protocol"
)

// DefaultLeaseTime is granted when the configuration does not say otherwise.
const DefaultLeaseTime = 3600

// Lease is one address granted to a peer.
type Lease struct {
	Peer  string
	Addr  netip.Addr
	Start uint32
	Time  uint32
}

// Expired reports whether the lease has run out at now.
func (l Lease) Expired(now uint32) bool {
	return uint64(now) >= uint64(l.Start)+uint64(l.Time)
}

// Config describes a Pool. At least one of IPv4 and IPv6 must be set.
type Config struct {
	IPv4      netip.Prefix
	IPv6      netip.Prefix
	LeaseTime uint32
	Clock     Clock
}

// Pool grants leases. It is safe for concurrent use.
type Pool struct {
	v4        *table
	v6        *table
	leaseTime uint32
	clock     Clock
	log       *zap.Logger
}

// New validates cfg and returns an empty Pool.
func New(cfg Config) (*Pool, error) {
	if !cfg.IPv4.IsValid() && !cfg.IPv6.IsValid() {
		return nil, errors.New("lease: no address pool configured")
	}
	if cfg.LeaseTime == 0 {
		cfg.LeaseTime = DefaultLeaseTime
	}

	p := &Pool{
		leaseTime: cfg.LeaseTime,
		clock:     cfg.Clock,
		log:       logging.GetLogger(),
	}
	if cfg.IPv4.IsValid() {
		if !cfg.IPv4.Addr().Is4() {
			return nil, fmt.Errorf("lease: ipv4 pool %s is not an IPv4 prefix", cfg.IPv4)
		}
		t, err := newTable(protocol.KeyIPv4, cfg.IPv4)
		if err != nil {
			return nil, err
		}
		p.v4 = t
	}
	if cfg.IPv6.IsValid() {
		if !cfg.IPv6.Addr().Is6() || cfg.IPv6.Addr().Is4In6() {
			return nil, fmt.Errorf("lease: ipv6 pool %s is not an IPv6 prefix", cfg.IPv6)
		}
		t, err := newTable(protocol.KeyIPv6, cfg.IPv6)
		if err != nil {
			return nil, err
		}
		p.v6 = t
	}
	return p, nil
}

// Handle answers one request from peer and returns the attributes of the
// reply, errno excluded.
//
// For each address family the request either omits the attribute (keep the
// current lease or get a new one), names an address (get that one if it is
// in the pool and not held by someone else, otherwise any free one) or sends
// an empty value (give the lease back). The granted lease time is the
// smaller of the requested and the configured time.
func (p *Pool) Handle(peer string, req *protocol.Request) ([]protocol.Attr, error) {
	if req.Command != protocol.KeyRequest {
		return nil, protocol.Errorf(protocol.CodeUnknownKey, "unsupported command %s", req.Command)
	}
	if req.Version != protocol.Version {
		return nil, protocol.Errorf(protocol.CodeUnsupportedVersion, "version %d", req.Version)
	}

	now := CurrentTime(p.clock)
	ttl := p.leaseTime
	if a, ok := req.Attr(protocol.KeyLeaseTime); ok {
		if v := uint32(a.Value.(protocol.Uint32)); v < ttl {
			ttl = v
		}
	}
	if ttl == 0 {
		return nil, protocol.Errorf(protocol.CodeInvalidValue, "leasetime must be positive")
	}

	var out []protocol.Attr
	var granted []grant
	for _, t := range []struct {
		key protocol.Key
		tbl *table
	}{{protocol.KeyIPv4, p.v4}, {protocol.KeyIPv6, p.v6}} {
		a, present := req.Attr(t.key)
		g, err := p.handleFamily(t.tbl, t.key, peer, a, present, now, ttl)
		if err != nil {
			for _, prev := range granted {
				prev.undo()
			}
			return nil, err
		}
		if g.attr.Key != protocol.KeyUnknown {
			out = append(out, g.attr)
		}
		granted = append(granted, g)
	}

	out = append(out,
		protocol.Uint32Attr(protocol.KeyLeaseStart, now),
		protocol.Uint32Attr(protocol.KeyLeaseTime, ttl),
	)
	return out, nil
}

func (p *Pool) handleFamily(t *table, k protocol.Key, peer string, a protocol.Attr, present bool, now, ttl uint32) (grant, error) {
	var want protocol.CIDR
	if present {
		want = a.Value.(protocol.CIDR)
	}

	if t == nil {
		if present && !want.IsNone() {
			return grant{}, protocol.Errorf(protocol.CodeAddressUnavailable, "no %s pool", k)
		}
		if present {
			return grant{attr: protocol.NoneAttr(k)}, nil
		}
		return grant{}, nil
	}

	if present && want.IsNone() {
		if l, ok := t.release(peer); ok {
			logging.LogLease(peer, "released", zap.Stringer("addr", l.Addr))
		}
		return grant{attr: protocol.NoneAttr(k)}, nil
	}

	var hint netip.Addr
	if present {
		hint = want.Addr
	}
	g, ok := t.acquire(peer, hint, now, ttl)
	if !ok {
		return grant{}, protocol.Errorf(protocol.CodeAddressUnavailable, "%s pool %s exhausted", k, t.prefix)
	}
	logging.LogLease(peer, g.event,
		zap.Stringer("addr", g.lease.Addr),
		zap.Uint32("leasetime", ttl),
	)
	g.attr = protocol.CIDRAttr(netip.PrefixFrom(g.lease.Addr, g.lease.Addr.BitLen()))
	return g, nil
}

// Expire drops every lease that has run out at now and returns how many
// were dropped.
func (p *Pool) Expire(now uint32) int {
	n := 0
	for _, t := range p.tables() {
		n += t.expire(now)
	}
	if n > 0 {
		p.log.Debug("Expired leases", zap.Int("count", n))
	}
	return n
}

// Leases returns a snapshot of all current leases, IPv4 first, each family
// ordered by address.
func (p *Pool) Leases() []Lease {
	var out []Lease
	for _, t := range p.tables() {
		ls := t.snapshot()
		slices.SortFunc(ls, func(a, b Lease) int { return a.Addr.Compare(b.Addr) })
		out = append(out, ls...)
	}
	return out
}

// Len returns the number of current leases.
func (p *Pool) Len() int {
	n := 0
	for _, t := range p.tables() {
		n += t.leases.Count()
	}
	return n
}

func (p *Pool) tables() []*table {
	var ts []*table
	if p.v4 != nil {
		ts = append(ts, p.v4)
	}
	if p.v6 != nil {
		ts = append(ts, p.v6)
	}
	return ts
}
