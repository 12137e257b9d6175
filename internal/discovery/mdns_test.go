package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantOK      bool
		wantAddr    string
		wantPort    int
		wantVersion string
	}{
		{
			name: "IPv4 server",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "wgdyn on wg0"},
				HostName:      "gateway.local.",
				Port:          970,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"version=1"},
			},
			wantOK:      true,
			wantAddr:    "192.168.4.16",
			wantPort:    970,
			wantVersion: "1",
		},
		{
			name: "no port specified (should default to 970)",
			entry: &zeroconf.ServiceEntry{
				HostName: "gateway.local.",
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantOK:   true,
			wantAddr: "172.16.0.1",
			wantPort: 970,
		},
		{
			name: "IPv6 only server",
			entry: &zeroconf.ServiceEntry{
				HostName: "gateway.local.",
				Port:     970,
				AddrIPv6: []net.IP{net.ParseIP("fd00::1")},
				Text:     []string{"version=1", "flag"},
			},
			wantOK:      true,
			wantAddr:    "fd00::1",
			wantPort:    970,
			wantVersion: "1",
		},
		{
			name: "both families (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "gateway.local.",
				Port:     9970,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fd00::2")},
			},
			wantOK:   true,
			wantAddr: "192.168.1.50",
			wantPort: 9970,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "gateway.local.",
				Port:     970,
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, ok := parseServiceEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("parseServiceEntry() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if ep.Addr.String() != tt.wantAddr {
				t.Errorf("Addr = %v, want %v", ep.Addr, tt.wantAddr)
			}
			if ep.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", ep.Port, tt.wantPort)
			}
			if ep.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", ep.Version, tt.wantVersion)
			}
			if ep.Host != tt.entry.HostName {
				t.Errorf("Host = %v, want %v", ep.Host, tt.entry.HostName)
			}
			if ep.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestEndpoint_Address(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "gw"},
		HostName:      "gw.local.",
		Port:          970,
		AddrIPv6:      []net.IP{net.ParseIP("fd00::1")},
	}
	ep, ok := parseServiceEntry(entry)
	if !ok {
		t.Fatal("parseServiceEntry() failed")
	}
	if got := ep.Address(); got != "[fd00::1]:970" {
		t.Errorf("Address() = %v, want [fd00::1]:970", got)
	}
	if got := ep.String(); got != "gw (gw.local.) at [fd00::1]:970" {
		t.Errorf("String() = %v", got)
	}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner()
	if s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}

func TestScan_RespectsTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mDNS test in short mode")
	}

	s := &Scanner{Timeout: 200 * time.Millisecond}
	start := time.Now()
	if _, err := s.Scan(context.Background()); err != nil {
		t.Skipf("mDNS unavailable: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Scan() took %v, should stop near its timeout", elapsed)
	}
}

func TestAdvertiser_ShutdownNil(t *testing.T) {
	var a *Advertiser
	a.Shutdown()
	(&Advertiser{}).Shutdown()
}
