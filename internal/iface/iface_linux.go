//go:build linux

package iface

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"syscall"

	"golang.org/x/sys/unix"
)

const familyInet6 = unix.AF_INET6

// Addrs dumps every address of the given family (unix.AF_INET,
// unix.AF_INET6 or unix.AF_UNSPEC) and calls fn once per record. The first
// error returned by fn stops the walk and is returned.
//
// The kernel cannot filter the dump by interface, so callers match on
// Addr.Index themselves.
func Addrs(family int, fn func(Addr) error) error {
	b, err := syscall.NetlinkRIB(unix.RTM_GETADDR, family)
	if err != nil {
		return fmt.Errorf("iface: RTM_GETADDR dump: %w", err)
	}
	return parseAddrs(b, fn)
}

func parseAddrs(b []byte, fn func(Addr) error) error {
	msgs, err := syscall.ParseNetlinkMessage(b)
	if err != nil {
		return fmt.Errorf("iface: parse netlink messages: %w", err)
	}

	for i := range msgs {
		m := &msgs[i]
		switch m.Header.Type {
		case unix.NLMSG_DONE:
			return nil
		case unix.NLMSG_ERROR:
			return netlinkError(m.Data)
		case unix.RTM_NEWADDR:
		default:
			continue
		}

		a, ok, err := parseAddr(m)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// parseAddr decodes one RTM_NEWADDR message. Records without a usable
// address are skipped.
func parseAddr(m *syscall.NetlinkMessage) (Addr, bool, error) {
	if len(m.Data) < unix.SizeofIfAddrmsg {
		return Addr{}, false, fmt.Errorf("iface: short ifaddrmsg (%d bytes)", len(m.Data))
	}
	family := m.Data[0]
	bits := int(m.Data[1])
	a := Addr{
		Flags: uint32(m.Data[2]),
		Scope: m.Data[3],
		Index: int(binary.NativeEndian.Uint32(m.Data[4:8])),
	}

	attrs, err := syscall.ParseNetlinkRouteAttr(m)
	if err != nil {
		return Addr{}, false, fmt.Errorf("iface: parse address attributes: %w", err)
	}

	var local, address []byte
	for _, attr := range attrs {
		switch attr.Attr.Type {
		case unix.IFA_LOCAL:
			local = attr.Value
		case unix.IFA_ADDRESS:
			address = attr.Value
		case unix.IFA_FLAGS:
			if len(attr.Value) >= 4 {
				a.Flags = binary.NativeEndian.Uint32(attr.Value)
			}
		}
	}

	// For point-to-point links IFA_ADDRESS is the peer; IFA_LOCAL is ours.
	raw := local
	if raw == nil {
		raw = address
	}

	var addr netip.Addr
	switch {
	case family == unix.AF_INET && len(raw) == 4:
		addr = netip.AddrFrom4([4]byte(raw))
	case family == unix.AF_INET6 && len(raw) == 16:
		addr = netip.AddrFrom16([16]byte(raw))
	default:
		return Addr{}, false, nil
	}

	a.Prefix = netip.PrefixFrom(addr, bits)
	if !a.Prefix.IsValid() {
		return Addr{}, false, nil
	}
	return a, true, nil
}

func netlinkError(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("iface: truncated netlink error")
	}
	errno := int32(binary.NativeEndian.Uint32(data[:4]))
	if errno == 0 {
		return nil
	}
	return fmt.Errorf("iface: netlink: %w", syscall.Errno(-errno))
}
