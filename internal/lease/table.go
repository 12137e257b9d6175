package lease

import (
	"fmt"
	"net/netip"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/muurk/wgdyn/internal/protocol"
)

// maxScan bounds the search for a free address in very large prefixes.
const maxScan = 1 << 16

// table holds the leases of one address family. Lookups go straight to the
// maps; anything that changes them holds mu.
type table struct {
	key         protocol.Key
	prefix      netip.Prefix
	first, last netip.Addr

	mu     sync.Mutex
	next   netip.Addr
	leases cmap.ConcurrentMap[string, Lease]      // address -> lease
	peers  cmap.ConcurrentMap[string, netip.Addr] // peer -> address
}

func newTable(k protocol.Key, prefix netip.Prefix) (*table, error) {
	prefix = prefix.Masked()
	first, last := hostRange(prefix)
	if !first.IsValid() || first.Compare(last) > 0 {
		return nil, fmt.Errorf("lease: %s pool %s has no usable addresses", k, prefix)
	}
	return &table{
		key:    k,
		prefix: prefix,
		first:  first,
		last:   last,
		next:   first,
		leases: cmap.New[Lease](),
		peers:  cmap.New[netip.Addr](),
	}, nil
}

// hostRange returns the assignable addresses of p. The network address is
// skipped, and for IPv4 the broadcast address too, unless the prefix is too
// small to have them.
func hostRange(p netip.Prefix) (first, last netip.Addr) {
	base := p.Addr()
	last = broadcast(p)
	if base.BitLen()-p.Bits() < 2 {
		return base, last
	}
	first = base.Next()
	if base.Is4() {
		last = last.Prev()
	}
	return first, last
}

func broadcast(p netip.Prefix) netip.Addr {
	b := p.Addr().AsSlice()
	for i := p.Bits(); i < len(b)*8; i++ {
		b[i/8] |= 0x80 >> (i % 8)
	}
	a, _ := netip.AddrFromSlice(b)
	return a
}

func (t *table) contains(a netip.Addr) bool {
	return t.prefix.Contains(a) && a.Compare(t.first) >= 0 && a.Compare(t.last) <= 0
}

// current returns the lease peer holds, expired or not.
func (t *table) current(peer string) (Lease, bool) {
	addr, ok := t.peers.Get(peer)
	if !ok {
		return Lease{}, false
	}
	l, ok := t.leases.Get(addr.String())
	if !ok || l.Peer != peer {
		return Lease{}, false
	}
	return l, true
}

func (t *table) free(a netip.Addr, peer string, now uint32) bool {
	if !t.contains(a) {
		return false
	}
	l, ok := t.leases.Get(a.String())
	return !ok || l.Peer == peer || l.Expired(now)
}

// grant records what acquire changed so a failed request can put it back.
type grant struct {
	attr  protocol.Attr
	lease Lease
	event string
	t     *table
	prev  *Lease
}

func (g grant) undo() {
	if g.t != nil {
		g.t.restore(g.lease, g.prev)
	}
}

// acquire gives peer an address: hint if it is usable, else the address the
// peer already holds, else the next free one.
func (t *table) acquire(peer string, hint netip.Addr, now, ttl uint32) (grant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := grant{t: t, event: "granted"}
	prev, hasPrev := t.current(peer)
	if hasPrev {
		g.prev = &prev
	}

	var addr netip.Addr
	switch {
	case hint.IsValid() && t.free(hint, peer, now):
		addr = hint
	case hasPrev:
		addr = prev.Addr
	default:
		a, ok := t.allocate(peer, now)
		if !ok {
			return grant{}, false
		}
		addr = a
	}
	if hasPrev && prev.Addr == addr {
		g.event = "renewed"
	}

	t.assign(Lease{Peer: peer, Addr: addr, Start: now, Time: ttl}, g.prev)
	g.lease, _ = t.leases.Get(addr.String())
	return g, true
}

func (t *table) allocate(peer string, now uint32) (netip.Addr, bool) {
	a := t.next
	for i := 0; i < maxScan; i++ {
		if !a.IsValid() || a.Compare(t.last) > 0 || a.Compare(t.first) < 0 {
			a = t.first
		}
		if t.free(a, peer, now) {
			t.next = a.Next()
			return a, true
		}
		a = a.Next()
	}
	return netip.Addr{}, false
}

// assign installs l, dropping the peer's previous lease and any expired
// lease another peer still had on the address. Callers hold mu.
func (t *table) assign(l Lease, prev *Lease) {
	key := l.Addr.String()
	if prev != nil && prev.Addr != l.Addr {
		t.leases.Remove(prev.Addr.String())
	}
	if old, ok := t.leases.Get(key); ok && old.Peer != l.Peer {
		if a, ok := t.peers.Get(old.Peer); ok && a == old.Addr {
			t.peers.Remove(old.Peer)
		}
	}
	t.leases.Set(key, l)
	t.peers.Set(l.Peer, l.Addr)
}

// restore reverts an acquire that produced l.
func (t *table) restore(l Lease, prev *Lease) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.leases.Get(l.Addr.String()); ok && cur.Peer == l.Peer {
		t.leases.Remove(l.Addr.String())
	}
	t.peers.Remove(l.Peer)
	if prev != nil {
		t.leases.Set(prev.Addr.String(), *prev)
		t.peers.Set(prev.Peer, prev.Addr)
	}
}

func (t *table) release(peer string) (Lease, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.current(peer)
	if !ok {
		return Lease{}, false
	}
	t.leases.Remove(l.Addr.String())
	t.peers.Remove(peer)
	return l, true
}

func (t *table) expire(now uint32) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for key, l := range t.leases.Items() {
		if !l.Expired(now) {
			continue
		}
		t.leases.Remove(key)
		if a, ok := t.peers.Get(l.Peer); ok && a == l.Addr {
			t.peers.Remove(l.Peer)
		}
		n++
	}
	return n
}

func (t *table) snapshot() []Lease {
	items := t.leases.Items()
	out := make([]Lease, 0, len(items))
	for _, l := range items {
		out = append(out, l)
	}
	return out
}
