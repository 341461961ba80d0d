// Package zmq carries envelopes over ZeroMQ REQ/REP sockets, the channel the
// reference solver backends listen on.
package zmq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("zmq transport closed")

// Transport is a ports.Transport over a REQ socket.
//
// A REQ socket that missed a reply cannot send again, so after any failure or
// cancellation the socket is discarded and a fresh one is dialed on the next
// call.
type Transport struct {
	address string
	logger  *slog.Logger

	mu        sync.Mutex
	sock      zmq4.Socket
	cancel    context.CancelFunc
	connected bool
	closed    bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger for socket lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New returns a transport for address (tcp://host:port, ipc://path or
// inproc://name). The socket is dialed on first use.
func New(address string, opts ...Option) *Transport {
	t := &Transport{
		address: address,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type result struct {
	msg    zmq4.Msg
	dialed bool
	err    error
}

// RoundTrip sends one request and waits for its reply. Dialing happens inside
// the wait too, so ctx bounds a backend that is not listening yet.
func (t *Transport) RoundTrip(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	sock, needDial := t.socket()

	done := make(chan result, 1)
	go func() {
		if needDial {
			if err := sock.Dial(t.address); err != nil {
				done <- result{err: fmt.Errorf("dial %s: %w", t.address, err)}
				return
			}
		}
		if err := sock.Send(zmq4.NewMsg(request)); err != nil {
			done <- result{dialed: needDial, err: fmt.Errorf("send: %w", err)}
			return
		}
		msg, err := sock.Recv()
		if err != nil {
			err = fmt.Errorf("recv: %w", err)
		}
		done <- result{msg: msg, dialed: needDial, err: err}
	}()

	select {
	case r := <-done:
		if r.dialed {
			t.logger.Debug("zmq socket connected", "address", t.address)
		}
		if r.err != nil {
			t.discard(r.err)
			return nil, r.err
		}
		t.connected = true
		return bytes.Join(r.msg.Frames, nil), nil
	case <-ctx.Done():
		// Cancelling the socket context also stops pending dial retries.
		t.discard(ctx.Err())
		return nil, ctx.Err()
	}
}

// socket returns the current socket, creating an undialed one if needed. The
// second result reports whether the caller must dial it.
func (t *Transport) socket() (zmq4.Socket, bool) {
	if t.sock != nil {
		return t.sock, !t.connected
	}
	sctx, cancel := context.WithCancel(context.Background())
	t.sock, t.cancel, t.connected = zmq4.NewReq(sctx), cancel, false
	return t.sock, true
}

// discard drops the current socket; the caller holds t.mu.
func (t *Transport) discard(reason error) {
	if t.sock == nil {
		return
	}
	t.cancel()
	_ = t.sock.Close()
	t.sock, t.cancel, t.connected = nil, nil, false
	t.logger.Debug("zmq socket discarded", "address", t.address, "err", reason)
}

// Close releases the socket. Further calls fail with ErrClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.sock == nil {
		return nil
	}
	err := t.sock.Close()
	t.cancel()
	t.sock, t.cancel = nil, nil
	return err
}
