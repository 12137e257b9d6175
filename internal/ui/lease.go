package ui

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/muurk/wgdyn/internal/client"
	"github.com/muurk/wgdyn/internal/discovery"
	"github.com/muurk/wgdyn/internal/protocol"
)

// RenderLease builds the result shown after a successful request.
func RenderLease(l *client.Lease, plain bool) *Result {
	r := NewSuccessResult("Lease granted").SetPlain(plain)
	r.AddDetail("IPv4", prefixOrNone(l.IPv4.IsValid(), l.IPv4.String()))
	r.AddDetail("IPv6", prefixOrNone(l.IPv6.IsValid(), l.IPv6.String()))
	r.AddDetail("Lease start", l.Start.UTC().Format(time.RFC3339))
	r.AddDetail("Lease time", l.Time.String())
	r.AddDetail("Expires", l.Expires().UTC().Format(time.RFC3339))
	return r
}

// RenderRelease builds the result shown after a release.
func RenderRelease(server string, plain bool) *Result {
	return NewSuccessResult("Lease released", Detail{Key: "Server", Value: server}).SetPlain(plain)
}

// RenderError builds a failure result with tips matching err.
func RenderError(title string, err error, plain bool) *Result {
	return NewFailureResult(title, err, troubleshooting(err)).SetPlain(plain)
}

// RenderEndpoints lists discovered servers, or warns when there are none.
func RenderEndpoints(endpoints []discovery.Endpoint, plain bool) *Result {
	if len(endpoints) == 0 {
		return NewWarningResult("No servers found").SetPlain(plain).
			AddDetail("Service", discovery.ServiceType)
	}
	r := NewSuccessResult(fmt.Sprintf("Found %d server(s)", len(endpoints))).SetPlain(plain)
	for _, ep := range endpoints {
		r.AddDetail(ep.Instance, endpointValue(ep))
	}
	return r
}

func prefixOrNone(ok bool, s string) string {
	if !ok {
		return "none"
	}
	return s
}

func troubleshooting(err error) []string {
	var pe *protocol.Error
	isReply := errors.As(err, &pe)

	switch {
	case errors.Is(err, protocol.ErrAddressUnavailable):
		return []string{
			"The server's address pool is exhausted or the requested address is in use",
			"Retry without --ipv4/--ipv6 to let the server pick an address",
			"Release unused leases with 'wgdyn-client release'",
		}
	case errors.Is(err, protocol.ErrUnsupportedVersion):
		return []string{"Client and server speak different protocol versions", "Upgrade the older side"}
	case errors.Is(err, protocol.ErrInvalidValue):
		return []string{"Check the requested addresses and lease time", "Lease time must be greater than zero"}
	case isReply:
		return []string{"The server rejected the request", "Run with WGDYN_LOG_LEVEL=debug to see the exchanged messages"}
	case errors.Is(err, discovery.ErrNotFound):
		return []string{
			"Ensure the server runs with --advertise",
			"mDNS must be allowed on the local network",
			"Pass the address explicitly with --server",
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		return []string{"Check the server is running", "Verify the address and port (default 970)"}
	case errors.Is(err, context.DeadlineExceeded):
		return []string{"The server did not answer in time", "Check the tunnel is up and the interface has a link-local address"}
	}
	return nil
}

func endpointValue(ep discovery.Endpoint) string {
	if ep.Version == "" {
		return ep.Address()
	}
	return fmt.Sprintf("%s (version %s)", ep.Address(), ep.Version)
}
