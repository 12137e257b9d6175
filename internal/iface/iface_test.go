package iface

import (
	"net/netip"
	"testing"
)

func TestIsLinkLocal(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"fe80::1", true},
		{"fe80::1234:5678:9abc:def0", true},
		{"fe80:0:0:1::1", false},
		{"fe81::1", false},
		{"febf::1", false},
		{"2001:db8::1", false},
		{"::1", false},
		{"169.254.1.1", false},
		{"::ffff:169.254.1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := IsLinkLocal(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("IsLinkLocal(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}
