package quicnet

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	quic "github.com/quic-go/quic-go"
	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// Server implements network.Listener over QUIC.
type Server struct {
	addr string

	log *logger.Logger

	mtx sync.Mutex

	lnAddr net.Addr
}

// ServerOption sets an optional parameter of Server.
type ServerOption func(*Server)

// WithServerLogger returns an option to specify the component logger.
func WithServerLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a Server which will listen on the given address.
func NewServer(addr string, opts ...ServerOption) *Server {
	s := &Server{
		addr: addr,
		log:  logger.Nop(),
	}

	for i := range opts {
		opts[i](s)
	}

	return s
}

// LocalAddr returns the bound listener address. Nil until Serve has
// started listening.
func (s *Server) LocalAddr() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.lnAddr
}

// Serve implements network.Listener. Each accepted stream carries exactly
// one request payload (read until FIN) and receives exactly one response
// payload.
func (s *Server) Serve(ctx context.Context, h network.RequestHandler) error {
	tlsConf, err := serverTLSConfig()
	if err != nil {
		return err
	}

	listener, err := quic.ListenAddr(s.addr, tlsConf, nil)
	if err != nil {
		return fmt.Errorf("quic listen on %s: %w", s.addr, err)
	}

	s.mtx.Lock()
	s.lnAddr = listener.Addr()
	s.mtx.Unlock()

	s.log.Info("transport listening",
		logger.FieldString("address", s.addr),
	)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("accept connection: %w", err)
		}

		go s.serveConn(ctx, conn, h)
	}
}

func (s *Server) serveConn(ctx context.Context, conn *quic.Conn, h network.RequestHandler) {
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug("connection closed",
					logger.FieldString("remote", conn.RemoteAddr().String()),
					logger.FieldError(err),
				)
			}

			return
		}

		go s.serveStream(ctx, stream, h)
	}
}

func (s *Server) serveStream(ctx context.Context, stream *quic.Stream, h network.RequestHandler) {
	defer stream.Close()

	req, err := io.ReadAll(stream)
	if err != nil {
		s.log.Debug("request read failure", logger.FieldError(err))
		return
	}

	resp, err := h(ctx, req)
	if err != nil {
		s.log.Debug("request handling failure", logger.FieldError(err))
		stream.CancelWrite(1)

		return
	}

	if _, err := stream.Write(resp); err != nil {
		s.log.Debug("response write failure", logger.FieldError(err))
	}
}
