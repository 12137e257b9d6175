package conn

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock is what a non-blocking Socket returns when it cannot make
// progress right now.
var ErrWouldBlock = unix.EAGAIN

// ErrPeerClosed is reported to the error callback when the peer hangs up
// before a message is complete.
var ErrPeerClosed = errors.New("conn: peer closed connection")

// Socket is a non-blocking byte stream. Read and Write return an error
// matching ErrWouldBlock instead of waiting.
type Socket interface {
	io.ReadWriteCloser
}

// FD is a Socket over a raw non-blocking file descriptor.
type FD struct {
	fd     int
	closer io.Closer
}

// NewFD wraps fd. When closer is non-nil, Close delegates to it instead of
// closing the descriptor directly; use this when fd is borrowed from a
// net.Conn that owns it.
func NewFD(fd int, closer io.Closer) *FD {
	return &FD{fd: fd, closer: closer}
}

func (s *FD) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (s *FD) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (s *FD) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return unix.Close(s.fd)
}

// Fd returns the wrapped descriptor.
func (s *FD) Fd() int { return s.fd }

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
