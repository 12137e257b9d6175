// Package client requests address leases from a wgdyn server.
//
// The server answers one request per connection, so a Client carries a
// single exchange: Dial, then Request or Release.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/muurk/wgdyn/internal/logging"
	"github.com/muurk/wgdyn/internal/protocol"
)

// ErrTruncated is returned when the server hangs up before the end of its
// reply.
var ErrTruncated = errors.New("client: connection closed mid-reply")

// Options are the addresses and lease time asked for. Zero values let the
// server choose.
type Options struct {
	IPv4      netip.Addr
	IPv6      netip.Addr
	LeaseTime uint32
}

// Lease is what the server granted. A zero prefix means no address of that
// family was assigned.
type Lease struct {
	IPv4  netip.Prefix
	IPv6  netip.Prefix
	Start time.Time
	Time  time.Duration
}

// Expires returns when the lease runs out.
func (l *Lease) Expires() time.Time { return l.Start.Add(l.Time) }

// Client is one connection to a server.
type Client struct {
	conn net.Conn
	addr string
}

// Dial connects to addr, retrying up to retries times with exponential
// backoff while ctx allows.
func Dial(ctx context.Context, addr string, retries uint64) (*Client, error) {
	var d net.Dialer
	op := func() (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)

	c, err := backoff.RetryNotifyWithData(op, b, func(err error, next time.Duration) {
		logging.Debug("Dial failed, retrying",
			zap.String("addr", addr),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	logging.LogConnection(addr, "connected")
	return &Client{conn: c, addr: addr}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Request asks for a lease. An error reply from the server comes back as a
// *protocol.Error. The connection is closed afterwards.
func (c *Client) Request(ctx context.Context, opts Options) (*Lease, error) {
	b := protocol.NewMessageBuffer(protocol.MaxResponseSize)
	b.AppendCommand(protocol.KeyRequest, protocol.Version)
	if opts.IPv4.IsValid() {
		b.AppendAttr(protocol.CIDRAttr(netip.PrefixFrom(opts.IPv4, 32)))
	}
	if opts.IPv6.IsValid() {
		b.AppendAttr(protocol.CIDRAttr(netip.PrefixFrom(opts.IPv6, 128)))
	}
	if opts.LeaseTime != 0 {
		b.AppendAttr(protocol.Uint32Attr(protocol.KeyLeaseTime, opts.LeaseTime))
	}
	b.End()

	reply, err := c.roundTrip(ctx, b.Bytes())
	if err != nil {
		return nil, err
	}
	return leaseFrom(reply)
}

// Release gives back both addresses. The connection is closed afterwards.
func (c *Client) Release(ctx context.Context) error {
	b := protocol.NewMessageBuffer(protocol.MaxResponseSize)
	b.AppendCommand(protocol.KeyRequest, protocol.Version)
	b.AppendAttr(protocol.NoneAttr(protocol.KeyIPv4))
	b.AppendAttr(protocol.NoneAttr(protocol.KeyIPv6))
	b.End()

	_, err := c.roundTrip(ctx, b.Bytes())
	return err
}

func (c *Client) roundTrip(ctx context.Context, msg []byte) (*protocol.Request, error) {
	defer c.conn.Close()

	if d, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(d); err != nil {
			return nil, fmt.Errorf("client: set deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	logging.LogRawBytes("Request to "+c.addr, msg)
	if _, err := c.conn.Write(msg); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("client: write: %w", err))
	}

	var reply protocol.Request
	buf := make([]byte, protocol.RecvBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			st, perr := reply.Feed(buf[:n])
			switch st {
			case protocol.Complete:
				if rerr := protocol.ResponseError(&reply); rerr != nil {
					return nil, rerr
				}
				return &reply, nil
			case protocol.Failed:
				return nil, fmt.Errorf("client: malformed reply: %w", perr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrTruncated
		}
		if err != nil {
			return nil, c.ctxErr(ctx, fmt.Errorf("client: read: %w", err))
		}
	}
}

// ctxErr prefers the context's error when it caused err. The socket
// deadline can fire a moment before ctx records its own expiry.
func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("client: %w", ctx.Err())
	}
	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("client: %w", context.DeadlineExceeded)
	}
	return err
}

func leaseFrom(r *protocol.Request) (*Lease, error) {
	l := &Lease{}
	for _, a := range r.Attrs {
		switch a.Key {
		case protocol.KeyIPv4, protocol.KeyIPv6:
			cidr := a.Value.(protocol.CIDR)
			if cidr.IsNone() {
				continue
			}
			p := cidr.Prefix()
			if !p.IsValid() {
				return nil, fmt.Errorf("client: server sent invalid %s %s/%d", a.Key, cidr.Addr, cidr.Bits)
			}
			if a.Key == protocol.KeyIPv4 {
				l.IPv4 = p
			} else {
				l.IPv6 = p
			}
		case protocol.KeyLeaseStart:
			l.Start = time.Unix(int64(a.Value.(protocol.Uint32)), 0)
		case protocol.KeyLeaseTime:
			l.Time = time.Duration(a.Value.(protocol.Uint32)) * time.Second
		}
	}
	return l, nil
}
