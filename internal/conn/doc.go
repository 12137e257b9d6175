// Package conn drives a protocol connection over a non-blocking socket.
//
// Conn owns the per-connection state: the request being accumulated, a read
// buffer and the tail of a response the socket could not take yet. Nothing in
// this package waits for readiness. HandleReadable reads until the socket
// would block and reports where it stopped; Send writes until the socket
// would block and keeps the rest for Flush. The caller's event loop decides
// when to call again.
//
//	c := conn.New(conn.NewFD(fd, nil))
//	switch c.HandleReadable(handler) {
//	case conn.StateReading:
//	    // wait for the fd to become readable, then call again
//	default:
//	    // handler has been called; respond and c.Close()
//	}
package conn
