package protocol

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// decodeValue turns the text after '=' into the value type fixed by key.
//
// Only attribute keys are valid here; the accumulator filters everything
// else before calling, so any other key is a bug and panics.
func decodeValue(key Key, text string) (Value, error) {
	switch key {
	case KeyIPv4, KeyIPv6:
		c, err := parseCIDR(key, text)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KeyLeaseStart, KeyLeaseTime, KeyErrno:
		v, err := parseUint32(text)
		if err != nil {
			return nil, Errorf(CodeInvalidValue, "%s: %q is not a 32-bit unsigned integer", key, text)
		}
		return Uint32(v), nil
	case KeyErrmsg:
		return truncateText(text), nil
	default:
		panic(fmt.Sprintf("protocol: decodeValue called with non-attribute key %v", key))
	}
}

// parseCIDR decodes "addr/bits" for the family of key. The empty string is
// the "no address" value.
func parseCIDR(key Key, text string) (CIDR, error) {
	if text == "" {
		return NoAddress(key), nil
	}

	addrText, bitsText, ok := strings.Cut(text, "/")
	if !ok {
		return CIDR{}, Errorf(CodeInvalidValue, "%s: %q has no prefix length", key, text)
	}

	addr, err := netip.ParseAddr(addrText)
	if err != nil || addr.Zone() != "" {
		return CIDR{}, Errorf(CodeInvalidValue, "%s: %q is not an address", key, addrText)
	}
	if (key == KeyIPv4 && !addr.Is4()) || (key == KeyIPv6 && !addr.Is6()) {
		return CIDR{}, Errorf(CodeInvalidValue, "%s: %q is the wrong address family", key, addrText)
	}

	// Any length up to 255 is accepted; only the address is used by the pool.
	bits, err := strconv.ParseUint(bitsText, 10, 8)
	if err != nil {
		return CIDR{}, Errorf(CodeInvalidValue, "%s: %q is not a prefix length", key, bitsText)
	}

	return CIDR{Addr: addr, Bits: uint8(bits)}, nil
}

// parseUint32 accepts only plain base-10 digits that fit in 32 bits.
func parseUint32(text string) (uint32, error) {
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
