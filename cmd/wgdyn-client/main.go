// Wgdyn-client requests tunnel addresses from a wg-dynamic server.
//
// The server is given with --server or found over mDNS with --discover.
// Results are printed as boxes on a terminal and as "key: value" lines
// otherwise (or with --plain), so the output can be consumed by scripts.
//
// Usage:
//
//	wgdyn-client request [flags]
//	wgdyn-client release [flags]
//	wgdyn-client discover [flags]
//
// Set WGDYN_LOG_LEVEL=debug to see the exchanged messages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wgdyn-client",
	Short: "wg-dynamic lease client",
	Long: `A client for the wg-dynamic protocol.

Requests IPv4 and IPv6 tunnel addresses from a wgdyn server, renews them and
gives them back.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silent unless WGDYN_LOG_LEVEL is set
		_ = logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Line("wgdyn-client"))
	},
}
