package quicnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	quic "github.com/quic-go/quic-go"
	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// Client implements network.Transport over QUIC. Connections are pooled per
// address and redialed transparently after failures.
//
// Client must be created with NewClient and released with Close.
type Client struct {
	log *logger.Logger

	mtx   sync.Mutex
	conns map[network.Address]*quic.Conn
}

// ClientOption sets an optional parameter of Client.
type ClientOption func(*Client)

// WithClientLogger returns an option to specify the component logger.
func WithClientLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a ready-to-go Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		log:   logger.Nop(),
		conns: make(map[network.Address]*quic.Conn),
	}

	for i := range opts {
		opts[i](c)
	}

	return c
}

// SendRequest implements network.Transport. The request is written to a
// fresh bidirectional stream, the write side is closed to signal the end of
// the payload, and the response is read until the peer closes its side.
func (c *Client) SendRequest(ctx context.Context, addr network.Address, req []byte) ([]byte, error) {
	resp, err := c.exchange(ctx, addr, req)
	if err == nil {
		return resp, nil
	}

	if isTimeout(err) {
		return nil, fmt.Errorf("%w: %s", network.ErrTimeout, err)
	}

	// the pooled connection may be stale, drop it and retry once
	c.drop(addr)

	resp, err = c.exchange(ctx, addr, req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", network.ErrTimeout, err)
		}

		return nil, err
	}

	return resp, nil
}

func (c *Client) exchange(ctx context.Context, addr network.Address, req []byte) ([]byte, error) {
	conn, err := c.connection(ctx, addr)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}

	defer stream.CancelRead(0)

	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set stream deadline: %w", err)
		}
	}

	if _, err := stream.Write(req); err != nil {
		return nil, fmt.Errorf("write request to %s: %w", addr, err)
	}

	// FIN the write side, the peer reads until EOF
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("close write side: %w", err)
	}

	resp, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", addr, err)
	}

	return resp, nil
}

func (c *Client) connection(ctx context.Context, addr network.Address) (*quic.Conn, error) {
	c.mtx.Lock()
	conn := c.conns[addr]
	c.mtx.Unlock()

	if conn != nil {
		return conn, nil
	}

	conn, err := quic.DialAddr(ctx, string(addr), clientTLSConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c.mtx.Lock()
	if cached := c.conns[addr]; cached != nil {
		// lost the dial race
		_ = conn.CloseWithError(0, "duplicate connection")
		conn = cached
	} else {
		c.conns[addr] = conn
	}
	c.mtx.Unlock()

	c.log.Debug("quic connection established",
		logger.FieldString("address", string(addr)),
	)

	return conn, nil
}

func (c *Client) drop(addr network.Address) {
	c.mtx.Lock()
	conn := c.conns[addr]
	delete(c.conns, addr)
	c.mtx.Unlock()

	if conn != nil {
		_ = conn.CloseWithError(0, "connection dropped")
	}
}

// Close releases all pooled connections.
func (c *Client) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	for addr, conn := range c.conns {
		_ = conn.CloseWithError(0, "client closed")
		delete(c.conns, addr)
	}

	return nil
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
