package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultPort is the port wg-dynamic servers listen on.
const DefaultPort = 970

// Config is the server configuration file.
type Config struct {
	Version        int           `yaml:"version"`
	Listen         Listen        `yaml:"listen"`
	Interface      string        `yaml:"interface,omitempty"` // Bind to this interface's link-local address
	Pool           Pool          `yaml:"pool"`
	LeaseTime      uint32        `yaml:"lease_time"`      // Seconds
	MaxConnections int           `yaml:"max_connections"` // Concurrent client connections
	IdleTimeout    time.Duration `yaml:"idle_timeout"`    // Drop clients that stay silent this long
	MetricsAddr    string        `yaml:"metrics_addr,omitempty"`
	Advertise      bool          `yaml:"advertise"` // Announce the server over mDNS
	LogLevel       string        `yaml:"log_level,omitempty"`
}

// Listen is where the server accepts connections. Host is ignored when
// Interface is set.
type Listen struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Pool holds the address ranges leases are drawn from, in CIDR notation.
type Pool struct {
	IPv4 string `yaml:"ipv4,omitempty"`
	IPv6 string `yaml:"ipv6,omitempty"`
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	return &Config{
		Version: 1,
		Listen: Listen{
			Host: "::",
			Port: DefaultPort,
		},
		Pool: Pool{
			IPv4: "10.20.0.0/24",
			IPv6: "fd00:20::/64",
		},
		LeaseTime:      3600,
		MaxConnections: 256,
		IdleTimeout:    30 * time.Second,
	}
}

// ListenAddr returns Listen as a host:port string.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Listen.Port))
}

// Prefixes parses the configured pools. An empty pool yields the zero
// prefix.
func (c *Config) Prefixes() (v4, v6 netip.Prefix, err error) {
	if c.Pool.IPv4 != "" {
		v4, err = netip.ParsePrefix(c.Pool.IPv4)
		if err != nil {
			return v4, v6, fmt.Errorf("pool.ipv4: %w", err)
		}
		if !v4.Addr().Is4() {
			return v4, v6, fmt.Errorf("pool.ipv4: %s is not an IPv4 prefix", v4)
		}
	}
	if c.Pool.IPv6 != "" {
		v6, err = netip.ParsePrefix(c.Pool.IPv6)
		if err != nil {
			return v4, v6, fmt.Errorf("pool.ipv6: %w", err)
		}
		if !v6.Addr().Is6() || v6.Addr().Is4In6() {
			return v4, v6, fmt.Errorf("pool.ipv6: %s is not an IPv6 prefix", v6)
		}
	}
	return v4.Masked(), v6.Masked(), nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port: %d out of range", c.Listen.Port)
	}
	if c.Pool.IPv4 == "" && c.Pool.IPv6 == "" {
		return errors.New("pool: at least one of ipv4 and ipv6 must be set")
	}
	if _, _, err := c.Prefixes(); err != nil {
		return err
	}
	if c.LeaseTime == 0 {
		return errors.New("lease_time must be positive")
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max_connections: %d must be positive", c.MaxConnections)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout: %s must be positive", c.IdleTimeout)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}
