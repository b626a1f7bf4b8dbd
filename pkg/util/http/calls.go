package httputil

import (
	"context"
	"errors"
	"net/http"
)

// Serve listens and serves the wrapped HTTP server. Blocks until the
// server stops.
//
// Returns any listening error except http.ErrServerClosed which marks
// a regular Shutdown.
func (x *Server) Serve() error {
	err := x.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Shutdown gracefully stops the wrapped HTTP server, waiting at most
// the configured timeout for active connections to finish.
//
// After Shutdown the Server can not be reused.
func (x *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), x.shutdownTimeout)
	defer cancel()

	return x.srv.Shutdown(ctx)
}
