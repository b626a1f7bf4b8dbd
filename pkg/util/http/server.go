// Package httputil wraps http.Server with the start/stop routine used
// by the auxiliary endpoints of the node.
package httputil

import (
	"fmt"
	"net/http"
	"time"
)

// Prm groups the required parameters of the Server.
type Prm struct {
	// TCP address for the server to listen on.
	//
	// Must not be empty.
	Address string

	// Must not be nil.
	Handler http.Handler
}

// Server is a wrapper over http.Server with a Serve/Shutdown pair
// honoring a configured shutdown timeout.
//
// Must be created via New; a created Server is ready to work without
// further initialization.
type Server struct {
	shutdownTimeout time.Duration

	srv *http.Server
}

func panicOnValue(name string, v interface{}) {
	panic(fmt.Sprintf("invalid %s (%T): %v", name, v, v))
}

// New creates the Server.
//
// Panics if a required parameter is missing or the shutdown timeout
// option is non-positive.
func New(prm Prm, opts ...Option) *Server {
	switch {
	case prm.Address == "":
		panicOnValue("Address parameter", prm.Address)
	case prm.Handler == nil:
		panicOnValue("Handler parameter", prm.Handler)
	}

	c := defaultCfg()

	for i := range opts {
		opts[i](c)
	}

	if c.shutdownTimeout <= 0 {
		panicOnValue("shutdown timeout option", c.shutdownTimeout)
	}

	return &Server{
		shutdownTimeout: c.shutdownTimeout,
		srv: &http.Server{
			Addr:    prm.Address,
			Handler: prm.Handler,
		},
	}
}
