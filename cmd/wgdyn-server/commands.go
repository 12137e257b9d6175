package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/wgdyn/internal/config"
	"github.com/muurk/wgdyn/internal/lease"
	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/server"
)

// Server command flags. Flags that are set override the config file.
var (
	configPath  string
	host        string
	port        int
	ifaceName   string
	ipv4Pool    string
	ipv6Pool    string
	leaseTime   uint32
	metricsAddr string
	advertise   bool
	logLevel    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the lease server",
	Long: `Start the wg-dynamic server and answer lease requests.

Settings are read from the config file (see 'wgdyn-server config init') and
then overridden by any flag given on the command line. When --interface is set
the server binds to that interface's IPv6 link-local address.`,
	Example: `  # Serve on the link-local address of wg0
  wgdyn-server server --interface wg0

  # Custom pools and a ten minute lease
  wgdyn-server server --ipv4-pool 10.0.0.0/24 --ipv6-pool fd00::/64 --lease-time 600

  # Expose metrics and advertise over mDNS
  wgdyn-server server --metrics-addr :9970 --advertise --log-level debug`,
	RunE: runServer,
}

func init() {
	f := serverCmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
	f.StringVar(&host, "host", "", "Listen address (ignored with --interface)")
	f.IntVar(&port, "port", config.DefaultPort, "Listen port")
	f.StringVar(&ifaceName, "interface", "", "Bind to this interface's link-local address")
	f.StringVar(&ipv4Pool, "ipv4-pool", "", "IPv4 pool in CIDR notation (\"none\" disables)")
	f.StringVar(&ipv6Pool, "ipv6-pool", "", "IPv6 pool in CIDR notation (\"none\" disables)")
	f.Uint32Var(&leaseTime, "lease-time", 0, "Maximum lease time in seconds")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics, /live and /ready on this address")
	f.BoolVar(&advertise, "advertise", false, "Advertise the server over mDNS")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	v4, v6, err := cfg.Prefixes()
	if err != nil {
		return err
	}
	pool, err := lease.New(lease.Config{IPv4: v4, IPv6: v6, LeaseTime: cfg.LeaseTime})
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(cmd.Context())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Listen.Host = host
	}
	if f.Changed("port") {
		cfg.Listen.Port = port
	}
	if f.Changed("interface") {
		cfg.Interface = ifaceName
	}
	if f.Changed("ipv4-pool") {
		cfg.Pool.IPv4 = poolFlag(ipv4Pool)
	}
	if f.Changed("ipv6-pool") {
		cfg.Pool.IPv6 = poolFlag(ipv6Pool)
	}
	if f.Changed("lease-time") {
		cfg.LeaseTime = leaseTime
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if f.Changed("advertise") {
		cfg.Advertise = advertise
	}
	if f.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
}

func poolFlag(v string) string {
	if v == "none" {
		return ""
	}
	return v
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
