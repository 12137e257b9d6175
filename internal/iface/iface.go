// Package iface enumerates interface addresses through rtnetlink.
package iface

import (
	"errors"
	"net/netip"
)

// ErrUnsupported is returned on platforms without rtnetlink.
var ErrUnsupported = errors.New("iface: address enumeration not supported on this platform")

// ErrNoLinkLocal is returned by LinkLocal when the interface has no fe80::/64
// address.
var ErrNoLinkLocal = errors.New("iface: no link-local address")

// Addr is one address record from an RTM_GETADDR dump.
type Addr struct {
	Index  int
	Prefix netip.Prefix
	Scope  uint8
	Flags  uint32
}

// IsLinkLocal reports whether addr lies in fe80::/64. Unlike
// netip.Addr.IsLinkLocalUnicast, which accepts all of fe80::/10, the 54 bits
// following the fe80 prefix must be zero.
func IsLinkLocal(addr netip.Addr) bool {
	if !addr.Is6() || addr.Is4In6() {
		return false
	}
	b := addr.As16()
	if b[0] != 0xfe || b[1] != 0x80 {
		return false
	}
	for _, x := range b[2:8] {
		if x != 0 {
			return false
		}
	}
	return true
}

// LinkLocal returns the first fe80::/64 address configured on the
// interface with the given index.
func LinkLocal(ifindex int) (netip.Addr, error) {
	var found netip.Addr
	err := Addrs(familyInet6, func(a Addr) error {
		if found.IsValid() || a.Index != ifindex || !IsLinkLocal(a.Prefix.Addr()) {
			return nil
		}
		found = a.Prefix.Addr()
		return nil
	})
	if err != nil {
		return netip.Addr{}, err
	}
	if !found.IsValid() {
		return netip.Addr{}, ErrNoLinkLocal
	}
	return found, nil
}
