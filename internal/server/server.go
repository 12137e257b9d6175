package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/config"
	"github.com/muurk/wgdyn/internal/discovery"
	"github.com/muurk/wgdyn/internal/iface"
	"github.com/muurk/wgdyn/internal/lease"
	"github.com/muurk/wgdyn/internal/logging"
)

const (
	// expireInterval is how often lapsed leases are swept.
	expireInterval = 30 * time.Second

	// shutdownTimeout bounds how long Shutdown waits for workers.
	shutdownTimeout = 10 * time.Second
)

var errServerClosed = errors.New("server: closed")

// Server answers lease requests on a TCP listener.
type Server struct {
	config   *config.Config
	pool     *lease.Pool
	workers  *ants.Pool
	listener *net.TCPListener
	metrics  *Metrics
	admin    *http.Server
	adv      *discovery.Advertiser

	// mu guards listener, admin and adv against a concurrent Shutdown.
	mu sync.Mutex

	wg          sync.WaitGroup
	activeConns cmap.ConcurrentMap[string, net.Conn]
	accepting   atomic.Bool
	closing     atomic.Bool
	stopExpire  chan struct{}
	stopOnce    sync.Once
}

// New creates a Server for cfg handing out leases from pool.
func New(cfg *config.Config, pool *lease.Pool) (*Server, error) {
	if cfg.LogLevel != "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	workers, err := ants.NewPool(cfg.MaxConnections,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logging.Error("Connection worker panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Server{
		config:      cfg,
		pool:        pool,
		workers:     workers,
		metrics:     NewMetrics(pool),
		activeConns: cmap.New[net.Conn](),
		stopExpire:  make(chan struct{}),
	}, nil
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Addr returns the listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// listenAddr is the configured host:port, or the interface's link-local
// address when an interface is configured.
func (s *Server) listenAddr() (string, error) {
	if s.config.Interface == "" {
		return s.config.ListenAddr(), nil
	}

	ifi, err := net.InterfaceByName(s.config.Interface)
	if err != nil {
		return "", fmt.Errorf("interface %s: %w", s.config.Interface, err)
	}
	ll, err := iface.LinkLocal(ifi.Index)
	if err != nil {
		return "", fmt.Errorf("interface %s: %w", s.config.Interface, err)
	}
	return netip.AddrPortFrom(ll.WithZone(ifi.Name), uint16(s.config.Listen.Port)).String(), nil
}

// Listen opens the TCP listener, the admin endpoint and the mDNS
// advertisement.
func (s *Server) Listen() error {
	addr, err := s.listenAddr()
	if err != nil {
		return err
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	l, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		_ = l.Close()
		return errServerClosed
	}
	s.listener = l

	logging.Info("Server listening for connections",
		zap.Stringer("addr", l.Addr()),
		zap.Uint32("lease_time", s.config.LeaseTime),
		zap.Int("max_connections", s.config.MaxConnections),
	)

	if s.config.MetricsAddr != "" {
		if err := s.startAdmin(); err != nil {
			_ = l.Close()
			s.listener = nil
			return err
		}
	}
	if s.config.Advertise {
		s.startAdvertising()
	}
	return nil
}

// Start listens and serves until SIGINT, SIGTERM or ctx is done, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Serve runs the lease sweeper and accepts connections until Shutdown.
// Listen must have been called.
func (s *Server) Serve() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if s.closing.Load() {
		return nil
	}
	if l == nil {
		return errors.New("server: Serve called before Listen")
	}

	go s.expireLoop()

	s.accepting.Store(true)
	defer s.accepting.Store(false)
	return s.acceptConnections(l)
}

// startAdmin serves metrics and health checks. Called with s.mu held.
func (s *Server) startAdmin() error {
	l, err := net.Listen("tcp", s.config.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on metrics address %s: %w", s.config.MetricsAddr, err)
	}
	health := newHealth(s.metrics, s.accepting.Load)
	admin := &http.Server{
		Handler:           adminHandler(s.metrics, health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.admin = admin
	go func() {
		if err := admin.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server failed", zap.Error(err))
		}
	}()
	logging.Info("Serving metrics and health checks", zap.Stringer("addr", l.Addr()))
	return nil
}

func (s *Server) startAdvertising() {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	var ifaces []net.Interface
	if s.config.Interface != "" {
		if ifi, err := net.InterfaceByName(s.config.Interface); err == nil {
			ifaces = []net.Interface{*ifi}
		}
	}

	port := s.config.Listen.Port
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	adv, err := discovery.Advertise("wgdyn on "+host, port, ifaces)
	if err != nil {
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.adv = adv
}

func (s *Server) expireLoop() {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopExpire:
			return
		case <-ticker.C:
			s.pool.Expire(lease.CurrentTime(nil))
		}
	}
}

// acceptConnections accepts connections and hands each to a worker.
func (s *Server) acceptConnections(l *net.TCPListener) error {
	for {
		tc, err := l.AcceptTCP()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		err = s.workers.Submit(func() {
			defer s.wg.Done()
			s.handleConnection(tc)
		})
		if err != nil {
			s.wg.Done()
			s.metrics.Rejected.Inc()
			logging.Warn("Rejecting connection",
				zap.Stringer("remote_addr", tc.RemoteAddr()),
				zap.Error(err),
			)
			_ = tc.Close()
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.closing.Store(true)
	s.stopOnce.Do(func() { close(s.stopExpire) })

	s.mu.Lock()
	listener, admin, adv := s.listener, s.admin, s.adv
	s.mu.Unlock()

	// Close listener to stop accepting new connections
	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}
	adv.Shutdown()

	// Close all active connections
	for addr, c := range s.activeConns.Items() {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}
	s.workers.Release()

	if admin != nil {
		if err := admin.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown", zap.Error(err))
		}
	}

	logging.Sync()
	return nil
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return s.activeConns.Count()
}

// peerKey identifies the peer a lease belongs to: its address without port
// or zone.
func peerKey(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.AddrPort().Addr().WithZone("").Unmap().String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
