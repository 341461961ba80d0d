package zmq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/graff/pkg/ports"
	"github.com/go-zeromq/zmq4"
)

// Server answers envelopes on a REP socket.
type Server struct {
	handler ports.RequestHandler
	logger  *slog.Logger
	scheme  string

	ctx    context.Context
	cancel context.CancelFunc
	sock   zmq4.Socket
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for request tracing.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Listen binds a REP socket on address. Use port 0 to pick a free port and
// Addr to learn it.
func Listen(ctx context.Context, address string, handler ports.RequestHandler, opts ...ServerOption) (*Server, error) {
	sctx, cancel := context.WithCancel(ctx)
	s := &Server{
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		scheme:  "tcp",
		ctx:     sctx,
		cancel:  cancel,
	}
	if i := strings.Index(address, "://"); i > 0 {
		s.scheme = address[:i]
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sock = zmq4.NewRep(sctx)
	if err := s.sock.Listen(address); err != nil {
		cancel()
		_ = s.sock.Close()
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}
	return s, nil
}

// Addr returns the bound address in URI form.
func (s *Server) Addr() string {
	return s.scheme + "://" + s.sock.Addr().String()
}

// Serve answers requests until the context passed to Listen is done or Close
// is called. It returns nil on a clean stop.
func (s *Server) Serve() error {
	go func() {
		<-s.ctx.Done()
		_ = s.sock.Close()
	}()

	for {
		msg, err := s.sock.Recv()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("recv: %w", err)
		}
		reply := ports.ServeBytes(s.ctx, s.handler, bytes.Join(msg.Frames, nil))
		if err := s.sock.Send(zmq4.NewMsg(reply)); err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			// The requester gave up; it will reconnect with a fresh socket.
			s.logger.Warn("zmq reply not delivered", "err", err)
		}
	}
}

// Close stops Serve.
func (s *Server) Close() error {
	s.cancel()
	return nil
}
