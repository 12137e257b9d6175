package ui

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/muurk/wgdyn/internal/client"
	"github.com/muurk/wgdyn/internal/discovery"
	"github.com/muurk/wgdyn/internal/protocol"
)

func TestRenderLease_Plain(t *testing.T) {
	l := &client.Lease{
		IPv4:  netip.MustParsePrefix("10.20.0.2/32"),
		Start: time.Unix(1700000000, 0),
		Time:  time.Hour,
	}

	out := RenderLease(l, true).Render()

	for _, want := range []string{
		"Lease granted",
		"IPv4:",
		"10.20.0.2/32",
		"none",
		"2023-11-14T22:13:20Z",
		"1h0m0s",
		"2023-11-14T23:13:20Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "IPv4") > strings.Index(out, "IPv6") {
		t.Errorf("details out of order:\n%s", out)
	}
}

func TestRenderLease_Boxed(t *testing.T) {
	l := &client.Lease{IPv6: netip.MustParsePrefix("fd00::2/128"), Time: time.Minute}
	r := RenderLease(l, false)
	r.Width = 80

	out := r.Render()
	if !strings.Contains(out, SuccessMarker) {
		t.Errorf("boxed output missing marker:\n%s", out)
	}
	if !strings.Contains(out, "fd00::2/128") {
		t.Errorf("boxed output missing address:\n%s", out)
	}
}

func TestRenderError_Tips(t *testing.T) {
	tests := []struct {
		name string
		err  error
		tip  string
	}{
		{"exhausted", protocol.Errorf(protocol.CodeAddressUnavailable, "pool exhausted"), "exhausted"},
		{"version", protocol.ErrUnsupportedVersion, "protocol versions"},
		{"value", protocol.ErrInvalidValue, "Lease time"},
		{"other code", protocol.ErrUnknownKey, "rejected"},
		{"not found", fmt.Errorf("scan: %w", discovery.ErrNotFound), "--advertise"},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), "running"},
		{"deadline", fmt.Errorf("request: %w", context.DeadlineExceeded), "did not answer"},
		{"wrapped reply", fmt.Errorf("request: %w", protocol.Errorf(protocol.CodeProtocolOrder, "late command")), "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderError("Request failed", tt.err, true).Render()
			if !strings.Contains(out, tt.tip) {
				t.Errorf("output missing tip %q:\n%s", tt.tip, out)
			}
			if !strings.Contains(out, "Error:") {
				t.Errorf("output missing error line:\n%s", out)
			}
		})
	}
}

func TestRenderError_NoTips(t *testing.T) {
	r := RenderError("Request failed", errors.New("boom"), true)
	if len(r.Troubleshooting) != 0 {
		t.Errorf("Troubleshooting = %v, want none", r.Troubleshooting)
	}
}

func TestRenderEndpoints(t *testing.T) {
	empty := RenderEndpoints(nil, true)
	if empty.Type != ResultWarning {
		t.Errorf("Type = %v, want ResultWarning", empty.Type)
	}

	eps := []discovery.Endpoint{{
		Instance: "wg0",
		Addr:     netip.MustParseAddr("fe80::1"),
		Port:     970,
		Version:  "1",
	}}
	out := RenderEndpoints(eps, true).Render()
	if !strings.Contains(out, "Found 1 server(s)") || !strings.Contains(out, "[fe80::1]:970") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRenderPlain_Aligned(t *testing.T) {
	got := renderPlain("Title", []Detail{{"A", "1"}, {"Long key", "2"}})
	want := "Title\nA:         1\nLong key:  2"
	if got != want {
		t.Errorf("renderPlain() =\n%q\nwant\n%q", got, want)
	}
}

func TestHeader_Plain(t *testing.T) {
	h := NewHeader("Lease request", "wgdyn-client request", Detail{"Server", "[fe80::1%wg0]:970"})
	h.Plain = true
	if got := h.Render(); got != "Lease request\nServer:  [fe80::1%wg0]:970" {
		t.Errorf("Render() = %q", got)
	}
}

func TestPrinter(t *testing.T) {
	var sb strings.Builder
	p := NewPrinter(&sb)
	if !p.Plain() {
		t.Fatal("printer to a buffer should be plain")
	}

	p.PrintResult(NewSuccessResult("Done", Detail{"Key", "value"}))
	if got := sb.String(); got != "Done\nKey:  value\n" {
		t.Errorf("output = %q", got)
	}
}
