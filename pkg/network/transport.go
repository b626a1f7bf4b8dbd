// Package network defines the transport substrate consumed by the
// reputation protocol: request/response messaging to addressed peers.
// Connection establishment, encryption and multiplexing are the
// implementation's concern; the protocol layer sees opaque payloads.
package network

import (
	"context"
	"errors"
)

// ErrTimeout is returned by Transport implementations when the peer did not
// respond within the request deadline.
var ErrTimeout = errors.New("request timed out")

// Address is a transport-level peer address in host:port form.
type Address string

// Transport sends a request payload to the addressed peer and returns the
// response payload.
//
// Implementations must honor the context deadline and report its expiry as
// ErrTimeout (possibly wrapped).
type Transport interface {
	SendRequest(ctx context.Context, addr Address, req []byte) ([]byte, error)
}

// RequestHandler processes one inbound request payload and returns the
// response payload.
type RequestHandler func(ctx context.Context, req []byte) ([]byte, error)

// Listener serves inbound requests with a registered handler.
type Listener interface {
	// Serve blocks serving requests until the context is canceled or an
	// unrecoverable transport error occurs.
	Serve(ctx context.Context, h RequestHandler) error
}
