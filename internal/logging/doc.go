// Package logging provides structured logging for the wgdyn server and client.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the lease daemon: connection lifecycle, protocol
// errors, lease events and raw byte dumps.
//
// # Log Levels
//
//   - Debug: raw message dumps, deferred writes, read loop details
//   - Info: connections, leases granted and released
//   - Warn: protocol errors sent back to peers, dropped connections
//   - Error: socket failures, startup failures
//
// # Structured Logging
//
//	logging.Info("Lease granted",
//	    zap.String("remote_addr", "[fe80::2%wg0]:41234"),
//	    zap.String("ipv4", "10.0.0.2/32"),
//	)
//
// # Specialized Logging
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogProtocolError(remoteAddr, uint32(protocol.CodeOf(err)), err)
//	logging.LogLease(remoteAddr, "granted", zap.Uint32("leasetime", 3600))
//	logging.LogRawBytes("request received", buf)
//
// # Configuration
//
// Logging is silent until initialised. The level comes from the caller or
// from the WGDYN_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
