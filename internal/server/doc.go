// Package server implements the wgdyn lease server.
//
// The server accepts TCP connections, reads exactly one request per
// connection, answers it from a lease.Pool and closes the connection.
//
// # Connection Handling
//
// Accepted connections are handed to a bounded ants worker pool; when every
// worker is busy the connection is closed immediately. Each worker drives
// its socket through syscall.RawConn so that the runtime poller supplies
// readiness while conn.Conn performs the non-blocking reads and writes:
//  1. Read until the message terminator, suspending whenever the socket
//     would block
//  2. Hand the parsed request to the lease pool
//  3. Send the reply, waiting for writability if the socket cannot take it
//     in one go
//  4. Close
//
// A connection that stays silent for the configured idle timeout is closed
// without a reply. Malformed requests get an error reply carrying errno and
// errmsg.
//
// # Usage Example
//
//	cfg, _ := config.Load("")
//	v4, v6, _ := cfg.Prefixes()
//	pool, _ := lease.New(lease.Config{IPv4: v4, IPv6: v6, LeaseTime: cfg.LeaseTime})
//	srv, err := server.New(cfg, pool)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Start blocks until SIGINT, SIGTERM or ctx is done
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Observability
//
// When metrics_addr is set the server exposes Prometheus metrics on
// /metrics and health checks on /live and /ready.
package server
