package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/protocol"
)

const (
	// ServiceType is the mDNS service type wgdyn servers register.
	ServiceType = "_wgdynamic._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for server discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an advertisement carries no port.
	DefaultPort = 970
)

// ErrNotFound is returned by First when no server answers in time.
var ErrNotFound = errors.New("discovery: no wgdyn server found")

// Advertiser is a running mDNS registration.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on port. A nil ifaces announces on every
// multicast-capable interface.
func Advertise(instance string, port int, ifaces []net.Interface) (*Advertiser, error) {
	txt := []string{"version=" + strconv.Itoa(protocol.Version)}
	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertiser{server: srv}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// Scanner handles mDNS server discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for the scanner's Timeout, or until ctx is done, and returns
// every server that answered.
func (s *Scanner) Scan(ctx context.Context) ([]Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		endpoints []Endpoint
	)
	err := s.browse(ctx, func(ep Endpoint) bool {
		mu.Lock()
		endpoints = append(endpoints, ep)
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return endpoints, nil
}

// First returns the first server that answers.
func (s *Scanner) First(ctx context.Context) (Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(chan Endpoint, 1)
	err := s.browse(ctx, func(ep Endpoint) bool {
		select {
		case found <- ep:
		default:
		}
		return false
	})
	if err != nil {
		return Endpoint{}, err
	}

	select {
	case ep := <-found:
		return ep, nil
	case <-ctx.Done():
		return Endpoint{}, ErrNotFound
	}
}

// browse starts a resolver and calls fn for each usable entry until fn
// returns false or ctx is done.
func (s *Scanner) browse(ctx context.Context, fn func(Endpoint) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			ep, ok := parseServiceEntry(entry)
			if !ok {
				continue
			}
			logging.Debug("Discovered server", zap.Stringer("endpoint", ep))
			if !fn(ep) {
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to an Endpoint.
// Entries without an address are dropped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	var addr netip.Addr
	for _, ip := range slices.Concat(entry.AddrIPv4, entry.AddrIPv6) {
		if a, ok := netip.AddrFromSlice(ip); ok {
			addr = a.Unmap()
			break
		}
	}
	if !addr.IsValid() {
		return Endpoint{}, false
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	var version string
	for _, txt := range entry.Text {
		if k, v, _ := strings.Cut(txt, "="); k == "version" {
			version = v
		}
	}

	return Endpoint{
		Instance:     entry.Instance,
		Host:         entry.HostName,
		Addr:         addr,
		Port:         port,
		Version:      version,
		DiscoveredAt: time.Now(),
	}, true
}
