// Wgdyn-server hands out tunnel addresses to wg-dynamic clients.
//
// It listens on the link-local address of a WireGuard interface (or any
// configured host), answers "request" messages with leases drawn from an IPv4
// and an IPv6 pool, and optionally advertises itself over mDNS and exposes
// Prometheus metrics with liveness and readiness probes.
//
// Usage:
//
//	wgdyn-server server [flags]
//	wgdyn-server config init [path]
//
// See 'wgdyn-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wgdyn/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wgdyn-server",
	Short: "wg-dynamic lease server",
	Long: `A server for the wg-dynamic protocol.

Peers connect over the tunnel, send a "request" message and receive an IPv4
and/or IPv6 address with a lease time. Leases are renewed by sending another
request before they expire.

Use the separate 'wgdyn-client' utility to request leases.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Line("wgdyn-server"))
	},
}
