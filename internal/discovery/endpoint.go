package discovery

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"
)

// Endpoint is a wgdyn server found on the network.
type Endpoint struct {
	// Instance is the advertised service instance name.
	Instance string

	// Host is the mDNS hostname (e.g., "gateway.local.").
	Host string

	// Addr is the first advertised address, IPv4 preferred.
	Addr netip.Addr

	// Port is the TCP port the server accepts requests on.
	Port int

	// Version is the protocol version from the TXT record, empty if absent.
	Version string

	// DiscoveredAt is when the endpoint answered.
	DiscoveredAt time.Time
}

// Address returns the endpoint as a dialable host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Addr.String(), strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Instance, e.Host, e.Address())
}
