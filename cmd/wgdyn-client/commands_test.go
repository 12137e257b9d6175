package main

import (
	"net/netip"
	"testing"
)

func TestWithDefaultPort(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.20.0.1", "10.20.0.1:970"},
		{"10.20.0.1:1970", "10.20.0.1:1970"},
		{"fe80::1%wg0", "[fe80::1%wg0]:970"},
		{"[fe80::1%wg0]:970", "[fe80::1%wg0]:970"},
		{"gateway.local", "gateway.local:970"},
	}

	for _, tt := range tests {
		if got := withDefaultPort(tt.in); got != tt.want {
			t.Errorf("withDefaultPort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRequestOptions(t *testing.T) {
	tests := []struct {
		name    string
		v4, v6  string
		wantErr bool
	}{
		{name: "none"},
		{name: "both", v4: "10.20.0.5", v6: "fd00::5"},
		{name: "v6 in ipv4", v4: "fd00::5", wantErr: true},
		{name: "v4 in ipv6", v6: "10.20.0.5", wantErr: true},
		{name: "zone", v6: "fe80::1%wg0", wantErr: true},
		{name: "garbage", v4: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqIPv4, reqIPv6, reqLeaseTime = tt.v4, tt.v6, 60
			t.Cleanup(func() { reqIPv4, reqIPv6, reqLeaseTime = "", "", 0 })

			opts, err := requestOptions()
			if (err != nil) != tt.wantErr {
				t.Fatalf("requestOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tt.v4 != "" && opts.IPv4 != netip.MustParseAddr(tt.v4) {
				t.Errorf("IPv4 = %v, want %s", opts.IPv4, tt.v4)
			}
			if tt.v6 != "" && opts.IPv6 != netip.MustParseAddr(tt.v6) {
				t.Errorf("IPv6 = %v, want %s", opts.IPv6, tt.v6)
			}
			if opts.LeaseTime != 60 {
				t.Errorf("LeaseTime = %d, want 60", opts.LeaseTime)
			}
		})
	}
}

func TestResolveServer(t *testing.T) {
	t.Cleanup(func() { serverAddr, discover = "", false })

	serverAddr, discover = "", false
	if _, err := resolveServer(t.Context()); err == nil {
		t.Error("expected error with neither --server nor --discover")
	}

	serverAddr, discover = "10.20.0.1", true
	if _, err := resolveServer(t.Context()); err == nil {
		t.Error("expected error with both --server and --discover")
	}

	serverAddr, discover = "10.20.0.1", false
	got, err := resolveServer(t.Context())
	if err != nil || got != "10.20.0.1:970" {
		t.Errorf("resolveServer() = %q, %v", got, err)
	}
}
