package server

import (
	"errors"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/conn"
	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/protocol"
)

// handleConnection serves one request on tc and closes it.
//
// The socket is driven through its syscall.RawConn: the runtime poller
// decides when the descriptor is readable or writable, and conn.Conn does
// the non-blocking reads and writes in between.
func (s *Server) handleConnection(tc *net.TCPConn) {
	remoteAddr := tc.RemoteAddr().String()

	s.activeConns.Set(remoteAddr, tc)
	s.metrics.ActiveConns.Inc()
	defer func() {
		s.activeConns.Remove(remoteAddr)
		s.metrics.ActiveConns.Dec()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	raw, err := tc.SyscallConn()
	if err != nil {
		logging.Error("Failed to get raw connection",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		_ = tc.Close()
		return
	}

	var c *conn.Conn
	err = raw.Control(func(fd uintptr) {
		c = conn.New(conn.NewFD(int(fd), tc)).
			WithLogger(logging.GetLogger().With(zap.String("remote_addr", remoteAddr)))
	})
	if err != nil {
		logging.Error("Failed to access socket", zap.String("remote_addr", remoteAddr), zap.Error(err))
		_ = tc.Close()
		return
	}
	defer c.Close()

	if err := tc.SetDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
		logging.Warn("Failed to set deadline", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	sess := &session{server: s, remoteAddr: remoteAddr, peer: peerKey(tc.RemoteAddr())}
	err = raw.Read(func(uintptr) bool {
		return c.HandleReadable(sess) != conn.StateReading
	})
	if err != nil {
		s.logAbort(remoteAddr, err)
		return
	}

	if sess.result != conn.WriteDeferred {
		return
	}
	s.metrics.DeferredWrites.Inc()
	err = raw.Write(func(uintptr) bool {
		res, err := c.Flush()
		if err != nil {
			return true
		}
		return res != conn.WriteDeferred
	})
	if err != nil {
		s.logAbort(remoteAddr, err)
	}
}

func (s *Server) logAbort(remoteAddr string, err error) {
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		logging.LogConnection(remoteAddr, "idle_timeout")
	case errors.Is(err, net.ErrClosed):
		logging.LogConnection(remoteAddr, "closed_by_server")
	default:
		logging.Warn("Connection aborted", zap.String("remote_addr", remoteAddr), zap.Error(err))
	}
}

// session is the conn.Handler for one connection.
type session struct {
	server     *Server
	remoteAddr string
	peer       string
	result     conn.WriteResult
}

func (h *session) OnRequest(c *conn.Conn) {
	req := c.Request()
	attrs, err := h.server.pool.Handle(h.peer, req)
	if err != nil {
		h.server.metrics.observeError(err)
		logging.LogProtocolError(h.remoteAddr, uint32(protocol.CodeOf(err)), err)
		h.reply(c, protocol.EncodeError(req.Command, err))
		return
	}
	h.server.metrics.Requests.WithLabelValues("ok").Inc()
	h.reply(c, protocol.EncodeResponse(req.Command, attrs))
}

func (h *session) OnError(c *conn.Conn, err error) {
	if errors.Is(err, conn.ErrPeerClosed) {
		logging.LogConnection(h.remoteAddr, "peer_closed")
		return
	}

	var pe *protocol.Error
	if !errors.As(err, &pe) {
		logging.Debug("Connection failed", zap.String("remote_addr", h.remoteAddr), zap.Error(err))
		h.result = conn.WriteFailed
		return
	}

	h.server.metrics.observeError(err)
	logging.LogProtocolError(h.remoteAddr, uint32(pe.Code), err)
	h.reply(c, protocol.EncodeError(c.Request().Command, err))
}

func (h *session) reply(c *conn.Conn, msg []byte) {
	logging.LogRawBytes("Reply to "+h.remoteAddr, msg)
	res, err := c.Send(msg)
	if err != nil {
		logging.Debug("Reply not sent", zap.String("remote_addr", h.remoteAddr), zap.Error(err))
	}
	h.result = res
}
