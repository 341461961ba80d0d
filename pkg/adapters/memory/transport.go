package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/graff/pkg/ports"
)

var (
	// ErrDropped is returned for calls selected with WithDrop.
	ErrDropped = errors.New("connection dropped")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("transport closed")
)

// Transport is an in-process ports.Transport. Requests still travel as bytes
// so the full encode/decode path is exercised.
type Transport struct {
	handler ports.RequestHandler
	delay   time.Duration
	drop    map[int]bool

	mu       sync.Mutex
	calls    int
	requests [][]byte
	closed   bool
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithDrop makes the given calls (1-based) fail after the handler has run,
// simulating a connection lost before the reply arrived.
func WithDrop(calls ...int) TransportOption {
	return func(t *Transport) {
		for _, n := range calls {
			t.drop[n] = true
		}
	}
}

// WithDelay holds every call for d before answering. The wait honours the context.
func WithDelay(d time.Duration) TransportOption {
	return func(t *Transport) {
		t.delay = d
	}
}

// NewTransport serves requests with handler.
func NewTransport(handler ports.RequestHandler, opts ...TransportOption) *Transport {
	t := &Transport{
		handler: handler,
		drop:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.calls++
	dropped := t.drop[t.calls]
	t.requests = append(t.requests, append([]byte(nil), request...))
	t.mu.Unlock()

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := ports.ServeBytes(ctx, t.handler, request)
	if dropped {
		return nil, ErrDropped
	}
	return reply, nil
}

// Requests returns every envelope sent so far, in order.
func (t *Transport) Requests() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.requests))
	copy(out, t.requests)
	return out
}

// LastRequest returns the most recent envelope, or nil.
func (t *Transport) LastRequest() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

// Calls returns the number of round trips attempted.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
