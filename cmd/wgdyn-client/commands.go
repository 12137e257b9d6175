package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wgdyn/internal/client"
	"github.com/muurk/wgdyn/internal/discovery"
	"github.com/muurk/wgdyn/internal/ui"
)

// Common flags
var (
	serverAddr  string
	discover    bool
	retries     uint64
	timeout     time.Duration
	scanTimeout time.Duration
	plain       bool
)

// Request flags
var (
	reqIPv4      string
	reqIPv6      string
	reqLeaseTime uint32
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&plain, "plain", false, "Plain output without colours or borders")
	pf.DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to browse for servers over mDNS")

	for _, cmd := range []*cobra.Command{requestCmd, releaseCmd} {
		f := cmd.Flags()
		f.StringVar(&serverAddr, "server", "", "Server address as host:port (port defaults to 970)")
		f.BoolVar(&discover, "discover", false, "Find the server over mDNS")
		f.Uint64Var(&retries, "retries", 3, "Connection attempts to retry before giving up")
		f.DurationVar(&timeout, "timeout", 10*time.Second, "Overall time limit")
	}

	requestCmd.Flags().StringVar(&reqIPv4, "ipv4", "", "Ask for this IPv4 address")
	requestCmd.Flags().StringVar(&reqIPv6, "ipv6", "", "Ask for this IPv6 address")
	requestCmd.Flags().Uint32Var(&reqLeaseTime, "lease-time", 0, "Ask for this lease time in seconds")
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request or renew a lease",
	Long: `Request IPv4 and IPv6 addresses from the server.

Sending another request before the lease expires renews it. Specific
addresses can be asked for; the server picks others if they are taken.`,
	Example: `  # Request from a known server
  wgdyn-client request --server '[fe80::1%wg0]:970'

  # Find the server over mDNS and ask for a specific address
  wgdyn-client request --discover --ipv4 10.20.0.5

  # Short lease, script-friendly output
  wgdyn-client request --server 10.20.0.1 --lease-time 300 --plain`,
	RunE: runRequest,
}

func runRequest(cmd *cobra.Command, args []string) error {
	opts, err := requestOptions()
	if err != nil {
		return err
	}

	p := newPrinter(cmd)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	addr, err := resolveServer(ctx)
	if err != nil {
		p.PrintResult(ui.RenderError("No server", err, p.Plain()))
		return err
	}

	p.PrintHeader(ui.NewHeader("Lease request", "wgdyn-client request",
		ui.Detail{Key: "Server", Value: addr},
		ui.Detail{Key: "IPv4", Value: orAny(reqIPv4)},
		ui.Detail{Key: "IPv6", Value: orAny(reqIPv6)},
	))

	c, err := client.Dial(ctx, addr, retries)
	if err != nil {
		p.PrintResult(ui.RenderError("Connection failed", err, p.Plain()))
		return err
	}
	l, err := c.Request(ctx, opts)
	if err != nil {
		p.PrintResult(ui.RenderError("Request failed", err, p.Plain()))
		return err
	}

	p.PrintResult(ui.RenderLease(l, p.Plain()))
	return nil
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Give back the current lease",
	RunE:  runRelease,
}

func runRelease(cmd *cobra.Command, args []string) error {
	p := newPrinter(cmd)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	addr, err := resolveServer(ctx)
	if err != nil {
		p.PrintResult(ui.RenderError("No server", err, p.Plain()))
		return err
	}

	c, err := client.Dial(ctx, addr, retries)
	if err == nil {
		err = c.Release(ctx)
	}
	if err != nil {
		p.PrintResult(ui.RenderError("Release failed", err, p.Plain()))
		return err
	}

	p.PrintResult(ui.RenderRelease(addr, p.Plain()))
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List servers advertised over mDNS",
	Example: `  # Browse for five seconds (default)
  wgdyn-client discover

  # Longer scan on a busy network
  wgdyn-client discover --scan-timeout 15s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		s := discovery.NewScanner()
		s.Timeout = scanTimeout

		endpoints, err := s.Scan(cmd.Context())
		if err != nil {
			p.PrintResult(ui.RenderError("Discovery failed", err, p.Plain()))
			return err
		}
		p.PrintResult(ui.RenderEndpoints(endpoints, p.Plain()))
		return nil
	},
}

func newPrinter(cmd *cobra.Command) *ui.Printer {
	p := ui.NewPrinter(cmd.OutOrStdout())
	if plain {
		p.SetPlain(true)
	}
	return p
}

func requestOptions() (client.Options, error) {
	var opts client.Options
	var err error
	if reqIPv4 != "" {
		if opts.IPv4, err = netip.ParseAddr(reqIPv4); err != nil || !opts.IPv4.Is4() {
			return opts, fmt.Errorf("--ipv4: invalid IPv4 address %q", reqIPv4)
		}
	}
	if reqIPv6 != "" {
		if opts.IPv6, err = netip.ParseAddr(reqIPv6); err != nil || !opts.IPv6.Is6() || opts.IPv6.Zone() != "" {
			return opts, fmt.Errorf("--ipv6: invalid IPv6 address %q", reqIPv6)
		}
	}
	opts.LeaseTime = reqLeaseTime
	return opts, nil
}

// resolveServer returns the address to dial from --server or --discover.
func resolveServer(ctx context.Context) (string, error) {
	switch {
	case serverAddr != "" && discover:
		return "", errors.New("--server and --discover are mutually exclusive")
	case serverAddr != "":
		return withDefaultPort(serverAddr), nil
	case discover:
		s := discovery.NewScanner()
		s.Timeout = scanTimeout
		ep, err := s.First(ctx)
		if err != nil {
			return "", err
		}
		return ep.Address(), nil
	}
	return "", errors.New("either --server or --discover is required")
}

// withDefaultPort appends the standard port to a bare host.
func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(discovery.DefaultPort))
}

func orAny(v string) string {
	if v == "" {
		return "any"
	}
	return v
}
