package conn

import (
	"fmt"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/protocol"
)

// State is where a connection's read side stands after a call to
// HandleReadable.
type State int

const (
	// StateReading means the socket ran dry mid-message. Call
	// HandleReadable again when it becomes readable.
	StateReading State = iota
	// StateComplete means a full message was handed to OnRequest.
	StateComplete
	// StateFailed means OnError was called with a protocol or I/O error.
	StateFailed
	// StateClosed means the peer hung up; OnError was called with
	// ErrPeerClosed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WriteResult is the outcome of Send or Flush.
type WriteResult int

const (
	// WriteDone means every byte was accepted by the socket.
	WriteDone WriteResult = iota
	// WriteDeferred means the unwritten tail was saved; call Flush when the
	// socket is writable again.
	WriteDeferred
	// WriteFailed means the socket returned a hard error. The connection
	// should be closed.
	WriteFailed
)

func (w WriteResult) String() string {
	switch w {
	case WriteDone:
		return "done"
	case WriteDeferred:
		return "deferred"
	case WriteFailed:
		return "failed"
	default:
		return fmt.Sprintf("WriteResult(%d)", int(w))
	}
}

// Handler receives the outcome of a read. Both callbacks run on the
// goroutine that called HandleReadable.
type Handler interface {
	// OnRequest is called once the message terminator has been read.
	OnRequest(c *Conn)
	// OnError is called with a *protocol.Error, ErrPeerClosed or a socket
	// error. protocol.CodeOf gives the numeric reason.
	OnError(c *Conn, err error)
}

// HandlerFuncs adapts two functions to a Handler.
type HandlerFuncs struct {
	Request func(c *Conn)
	Error   func(c *Conn, err error)
}

func (h HandlerFuncs) OnRequest(c *Conn) {
	if h.Request != nil {
		h.Request(c)
	}
}

func (h HandlerFuncs) OnError(c *Conn, err error) {
	if h.Error != nil {
		h.Error(c, err)
	}
}

// Conn drives one protocol connection over a non-blocking Socket. It never
// waits: reads and writes that would block return control to the caller with
// enough state kept to resume.
//
// A Conn is not safe for concurrent use.
type Conn struct {
	sock    Socket
	req     protocol.Request
	pending *bytebufferpool.ByteBuffer
	buf     []byte
	log     *zap.Logger
}

// New returns a Conn reading from and writing to sock.
func New(sock Socket) *Conn {
	return &Conn{
		sock: sock,
		buf:  make([]byte, protocol.RecvBufSize),
		log:  logging.GetLogger(),
	}
}

// WithLogger sets the logger used for socket diagnostics.
func (c *Conn) WithLogger(l *zap.Logger) *Conn {
	c.log = l
	return c
}

// Request returns the message parsed so far.
func (c *Conn) Request() *protocol.Request { return &c.req }

// Socket returns the underlying socket, or nil after Close.
func (c *Conn) Socket() Socket { return c.sock }

// HandleReadable reads until the socket would block, the message is complete,
// or something fails. Exactly one of h's callbacks is called for every
// terminal state; none is called for StateReading.
func (c *Conn) HandleReadable(h Handler) State {
	for {
		n, err := c.sock.Read(c.buf)
		switch {
		case err != nil && isWouldBlock(err):
			return StateReading
		case err != nil:
			c.log.Debug("Socket read failed", zap.Error(err))
			h.OnError(c, fmt.Errorf("conn: read: %w", err))
			return StateFailed
		case n == 0:
			c.log.Debug("Peer disconnected before end of message",
				zap.Int("pending", c.req.Pending()),
				zap.Int("attrs", len(c.req.Attrs)),
			)
			h.OnError(c, ErrPeerClosed)
			return StateClosed
		}

		status, err := c.req.Feed(c.buf[:n])
		switch status {
		case protocol.Complete:
			h.OnRequest(c)
			return StateComplete
		case protocol.Failed:
			h.OnError(c, err)
			return StateFailed
		}
	}
}

// Send writes buf without blocking. Whatever the socket does not take is
// copied into the pending buffer, replacing anything left there, and
// WriteDeferred is returned. Only one write may be outstanding: do not Send
// again until Flush reports WriteDone.
func (c *Conn) Send(buf []byte) (WriteResult, error) {
	off := 0
	for off < len(buf) {
		n, err := c.sock.Write(buf[off:])
		if err != nil {
			if isWouldBlock(err) {
				break
			}
			c.log.Error("Socket write failed", zap.Error(err))
			return WriteFailed, fmt.Errorf("conn: write: %w", err)
		}
		if n == 0 {
			break
		}
		off += n
	}

	if off == len(buf) {
		return WriteDone, nil
	}

	c.log.Debug("Socket blocking on write, postponing",
		zap.Int("written", off),
		zap.Int("remaining", len(buf)-off),
	)
	if c.pending == nil {
		c.pending = bytebufferpool.Get()
	}
	c.pending.Set(buf[off:])
	return WriteDeferred, nil
}

// Flush retries the pending buffer. It returns WriteDone immediately when
// nothing is pending.
func (c *Conn) Flush() (WriteResult, error) {
	if c.pending == nil {
		return WriteDone, nil
	}

	p := c.pending
	c.pending = nil
	res, err := c.Send(p.B)
	bytebufferpool.Put(p)
	return res, err
}

// Pending returns the bytes still waiting to be written. The slice is only
// valid until the next Send, Flush or Close.
func (c *Conn) Pending() []byte {
	if c.pending == nil {
		return nil
	}
	return c.pending.B
}

// Close closes the socket and releases everything the connection holds. A
// close error is logged, not returned. The Conn can be reused with Reset.
func (c *Conn) Close() {
	if c.sock != nil {
		if err := c.sock.Close(); err != nil {
			c.log.Debug("Failed to close socket", zap.Error(err))
		}
	}
	c.req.Reset()
	if c.pending != nil {
		bytebufferpool.Put(c.pending)
	}
	c.pending = nil
	c.sock = nil
}

// Reset tears down the current connection, if any, and attaches sock.
func (c *Conn) Reset(sock Socket) {
	c.Close()
	c.sock = sock
}
