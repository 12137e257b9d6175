package protocol

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrmsgCap is the size of an errmsg payload including its terminator, so at
// most ErrmsgCap-1 bytes of text survive decoding.
const ErrmsgCap = 72

// Value is the decoded payload of an attribute. The concrete type is fixed by
// the attribute's key: CIDR for ipv4/ipv6, Uint32 for leasestart, leasetime
// and errno, Text for errmsg.
type Value interface {
	// Len is the payload size in bytes.
	Len() int
	// Text is the value in its wire encoding (the part after '=').
	Text() string
}

// CIDR is an address plus prefix length. The zero-address/zero-prefix form
// is how the protocol spells "no address".
type CIDR struct {
	Addr netip.Addr
	Bits uint8
}

// NoAddress returns the "none" CIDR for the given key's family.
func NoAddress(k Key) CIDR {
	if k == KeyIPv6 {
		return CIDR{Addr: netip.IPv6Unspecified()}
	}
	return CIDR{Addr: netip.IPv4Unspecified()}
}

// IsNone reports whether c is the all-zero "no address" value.
func (c CIDR) IsNone() bool {
	return c.Bits == 0 && (!c.Addr.IsValid() || c.Addr.IsUnspecified())
}

// Prefix converts c to a netip.Prefix. Prefix lengths beyond the family's
// width yield an invalid prefix.
func (c CIDR) Prefix() netip.Prefix {
	return netip.PrefixFrom(c.Addr, int(c.Bits))
}

func (c CIDR) Len() int {
	if c.Addr.Is4() {
		return 4 + 1
	}
	return 16 + 1
}

func (c CIDR) Text() string {
	if c.IsNone() {
		return ""
	}
	return c.Addr.String() + "/" + strconv.Itoa(int(c.Bits))
}

func (c CIDR) String() string { return c.Text() }

// Uint32 is an unsigned 32-bit integer value (seconds or an error number).
type Uint32 uint32

func (u Uint32) Len() int       { return 4 }
func (u Uint32) Text() string   { return strconv.FormatUint(uint64(u), 10) }
func (u Uint32) String() string { return u.Text() }

// Text is free-form message text, at most ErrmsgCap-1 bytes long.
type Text string

func (t Text) Len() int {
	return min(ErrmsgCap, len(t)+1)
}

func (t Text) Text() string   { return string(t) }
func (t Text) String() string { return string(t) }

// Attr is one decoded key/value line.
type Attr struct {
	Key   Key
	Value Value
}

// Len is the payload length of the attribute's value.
func (a Attr) Len() int {
	if a.Value == nil {
		return 0
	}
	return a.Value.Len()
}

func (a Attr) String() string {
	if a.Value == nil {
		return a.Key.String() + "="
	}
	return a.Key.String() + "=" + a.Value.Text()
}

// CIDRAttr builds an ipv4 or ipv6 attribute from a prefix.
func CIDRAttr(p netip.Prefix) Attr {
	k := KeyIPv4
	if p.Addr().Is6() {
		k = KeyIPv6
	}
	return Attr{Key: k, Value: CIDR{Addr: p.Addr(), Bits: uint8(p.Bits())}}
}

// NoneAttr builds the empty ("release") form of an ipv4 or ipv6 attribute.
func NoneAttr(k Key) Attr {
	if k != KeyIPv4 && k != KeyIPv6 {
		panic(fmt.Sprintf("protocol: %v is not an address key", k))
	}
	return Attr{Key: k, Value: NoAddress(k)}
}

// Uint32Attr builds a leasestart, leasetime or errno attribute.
func Uint32Attr(k Key, v uint32) Attr {
	return Attr{Key: k, Value: Uint32(v)}
}

// ErrmsgAttr builds an errmsg attribute, truncating msg to the wire cap.
// Newlines and NUL bytes would end the line early and become spaces.
func ErrmsgAttr(msg string) Attr {
	msg = strings.Map(func(r rune) rune {
		if r == '\n' || r == 0 {
			return ' '
		}
		return r
	}, msg)
	return Attr{Key: KeyErrmsg, Value: truncateText(msg)}
}

// truncateText cuts s to the errmsg cap without splitting a UTF-8 sequence.
func truncateText(s string) Text {
	if len(s) > ErrmsgCap-1 {
		n := ErrmsgCap - 1
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return Text(s)
}
