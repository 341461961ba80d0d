// Package endpoint provides the synchronous request/reply primitive used by
// every session operation: serialize, send, block for one reply, deserialize.
package endpoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
	"github.com/google/uuid"
)

// Endpoint owns one transport and allows a single outstanding request.
// Concurrent callers queue for it; a caller's context and timeout also bound
// the time spent queued.
type Endpoint struct {
	transport ports.Transport
	address   string
	timeout   time.Duration
	logger    *slog.Logger
	hooks     domain.RequestHooks

	// turn holds a token while a request is outstanding.
	turn   chan struct{}
	closed bool
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithTimeout bounds each request. Zero (the default) disables the bound and
// the call blocks until the transport answers or the context is done.
func WithTimeout(d time.Duration) Option {
	return func(e *Endpoint) {
		e.timeout = d
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Endpoint) {
		e.logger = logger
	}
}

// WithHooks registers observability callbacks. Repeated calls accumulate.
func WithHooks(hooks domain.RequestHooks) Option {
	return func(e *Endpoint) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithAddress records the address used in error messages.
func WithAddress(address string) Option {
	return func(e *Endpoint) {
		e.address = address
	}
}

// New wraps a transport.
func New(transport ports.Transport, opts ...Option) *Endpoint {
	e := &Endpoint{
		transport: transport,
		turn:      make(chan struct{}, 1),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Address returns the configured address, if any.
func (e *Endpoint) Address() string { return e.address }

// SendRequest performs one round trip. Transport failures and timeouts are
// returned as *domain.TransportError and undecodable replies as
// *domain.DecodeError. A reply with a non-OK status is returned without an
// error; interpreting it is up to the caller.
func (e *Endpoint) SendRequest(ctx context.Context, req codec.Request) (codec.Reply, error) {
	payload, err := codec.MarshalRequest(req)
	if err != nil {
		return codec.Reply{}, fmt.Errorf("encode %s: %w", req.Op, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return codec.Reply{}, e.transportErr(req.Op, ctx.Err())
	}
	defer func() { <-e.turn }()

	if e.closed {
		return codec.Reply{}, e.transportErr(req.Op, ErrClosed)
	}

	id := uuid.NewString()
	start := time.Now()
	if e.hooks.OnRequest != nil {
		e.hooks.OnRequest(ctx, &domain.RequestEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventRequestSent, CorrelationID: id},
			Request:   req.Op,
		})
	}
	e.logger.Debug("request sent", "id", id, "request", req.Op, "bytes", len(payload))

	raw, err := e.transport.RoundTrip(ctx, payload)

	var reply codec.Reply
	if err != nil {
		err = e.transportErr(req.Op, err)
	} else {
		reply, err = codec.UnmarshalReply(raw)
	}

	elapsed := time.Since(start)
	if e.hooks.OnReply != nil {
		e.hooks.OnReply(ctx, &domain.RequestEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventReplyReceived, CorrelationID: id},
			Request:   req.Op,
			Status:    reply.Status(),
			Duration:  elapsed,
			Err:       err,
		})
	}
	if err != nil {
		e.logger.Debug("request failed", "id", id, "request", req.Op, "duration", elapsed, "error", err)
		return codec.Reply{}, err
	}
	e.logger.Debug("reply received", "id", id, "request", req.Op, "status", reply.Status(), "duration", elapsed)
	return reply, nil
}

func (e *Endpoint) transportErr(op string, err error) error {
	return &domain.TransportError{Op: op, Address: e.address, Err: err}
}

// Close waits for the outstanding request, if any, then closes the
// transport. Further requests fail with ErrClosed.
func (e *Endpoint) Close() error {
	e.turn <- struct{}{}
	defer func() { <-e.turn }()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.transport.Close()
}
