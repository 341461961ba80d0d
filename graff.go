package graff

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	httpadapter "github.com/aretw0/graff/pkg/adapters/http"
	"github.com/aretw0/graff/pkg/adapters/memory"
	"github.com/aretw0/graff/pkg/adapters/zmq"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/endpoint"
	"github.com/aretw0/graff/pkg/mockbackend"
	"github.com/aretw0/graff/pkg/ports"
	"github.com/aretw0/graff/pkg/session"
)

// Version is the SDK version; release builds override it with -ldflags.
var Version = "0.1.0"

// Client is the high-level entry point for the graff SDK.
// It binds one endpoint to one robot and one session mirror.
type Client struct {
	ep      *endpoint.Endpoint
	manager *session.Manager
	robot   domain.Robot
	session string
	logger  *slog.Logger
}

type options struct {
	timeout  time.Duration
	logger   *slog.Logger
	hooks    domain.RequestHooks
	handler  ports.RequestHandler
	store    ports.SnapshotStore
	locker   ports.DistributedLocker
	robot    string
	robotDoc string
	session  string
}

// Option configures Dial.
type Option func(*options)

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets a structured logger for the client and its transport.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHooks registers request observability hooks.
func WithHooks(hooks domain.RequestHooks) Option {
	return func(o *options) { o.hooks = o.hooks.Merge(hooks) }
}

// WithHandler sets the backend served by mem:// addresses. Defaults to a
// fresh mock backend.
func WithHandler(h ports.RequestHandler) Option {
	return func(o *options) { o.handler = h }
}

// WithStore persists the mirror after every confirmed mutation.
// Defaults to an in-memory store.
func WithStore(store ports.SnapshotStore) Option {
	return func(o *options) { o.store = store }
}

// WithLocker serializes mirror updates across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) { o.locker = locker }
}

// WithRobot names the robot, with an optional description.
func WithRobot(name, description string) Option {
	return func(o *options) {
		o.robot = name
		o.robotDoc = description
	}
}

// WithSession names the session.
func WithSession(name string) Option {
	return func(o *options) { o.session = name }
}

// NewTransport picks a transport from the address scheme:
// tcp, ipc and inproc use ZeroMQ, http and https POST envelopes, and mem
// serves handler in-process. A nil logger discards.
func NewTransport(address string, handler ports.RequestHandler, logger *slog.Logger) (ports.Transport, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "tcp", "ipc", "inproc":
		return zmq.New(address, zmq.WithLogger(logger)), nil
	case "http", "https":
		return httpadapter.NewTransport(address), nil
	case "mem":
		if handler == nil {
			handler = mockbackend.New(mockbackend.WithLogger(logger))
		}
		return memory.NewTransport(handler), nil
	default:
		return nil, fmt.Errorf("unsupported address scheme %q in %q", u.Scheme, address)
	}
}

// Dial connects to the backend at address. ZeroMQ sockets connect lazily,
// so an unreachable backend surfaces on the first request.
func Dial(address string, opts ...Option) (*Client, error) {
	o := options{robot: "robot", session: "session"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}

	robot, err := domain.NewRobot(o.robot, o.robotDoc)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.session) == "" {
		return nil, fmt.Errorf("session name is required")
	}

	tr, err := NewTransport(address, o.handler, o.logger)
	if err != nil {
		return nil, err
	}
	ep := endpoint.New(tr,
		endpoint.WithAddress(address),
		endpoint.WithTimeout(o.timeout),
		endpoint.WithLogger(o.logger),
		endpoint.WithHooks(o.hooks),
	)

	managerOpts := []session.Option{session.WithLogger(o.logger)}
	if o.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(o.locker))
	}

	return &Client{
		ep:      ep,
		manager: session.NewManager(o.store, managerOpts...),
		robot:   robot,
		session: o.session,
		logger:  o.logger.With("robot", robot.Name(), "session", o.session),
	}, nil
}

// Endpoint exposes the underlying endpoint for the package-level operations.
func (c *Client) Endpoint() *endpoint.Endpoint { return c.ep }

// Robot returns the bound robot.
func (c *Client) Robot() domain.Robot { return c.robot }

// Manager returns the session manager backing the mirror.
func (c *Client) Manager() *session.Manager { return c.manager }

// Register announces the robot and the session to the backend.
func (c *Client) Register(ctx context.Context) error {
	if _, err := session.RegisterRobot(ctx, c.ep, c.robot); err != nil {
		return err
	}
	mirror, err := c.manager.LoadOrCreate(ctx, c.session)
	if err != nil {
		return err
	}
	if _, err := session.RegisterSession(ctx, c.ep, c.robot, mirror); err != nil {
		return err
	}
	c.logger.Info("registered")
	return nil
}

// AddVariable submits v and records it in the mirror once confirmed.
func (c *Client) AddVariable(ctx context.Context, v domain.Variable) (session.Result, error) {
	return c.manager.AddVariable(ctx, c.ep, c.session, v)
}

// AddFactor submits f and records it in the mirror once confirmed.
func (c *Client) AddFactor(ctx context.Context, f domain.Factor) (session.Result, error) {
	return c.manager.AddFactor(ctx, c.ep, c.session, f)
}

// Solve requests a batch solve.
func (c *Client) Solve(ctx context.Context) (session.Result, error) {
	return session.RequestSolve(ctx, c.ep)
}

// KDE returns the belief over a variable.
func (c *Client) KDE(ctx context.Context, name string) (domain.Distribution, error) {
	d, _, err := session.GetVarMAPKDE(ctx, c.ep, name)
	return d, err
}

// MAPMax returns the maximum a posteriori point estimate.
func (c *Client) MAPMax(ctx context.Context, name string) ([]float64, error) {
	p, _, err := session.GetVarMAPMax(ctx, c.ep, name)
	return p, err
}

// MAPMean returns the posterior mean.
func (c *Client) MAPMean(ctx context.Context, name string) ([]float64, error) {
	p, _, err := session.GetVarMAPMean(ctx, c.ep, name)
	return p, err
}

// List returns what the backend holds.
func (c *Client) List(ctx context.Context, variables, factors bool) (codec.Listing, error) {
	l, _, err := session.List(ctx, c.ep, variables, factors)
	return l, err
}

// ByTag lists the elements carrying tag.
func (c *Client) ByTag(ctx context.Context, tag string) (codec.Listing, error) {
	l, _, err := session.GetVarsByTag(ctx, c.ep, tag)
	return l, err
}

// Status returns the backend counters.
func (c *Client) Status(ctx context.Context) (codec.Status, error) {
	st, _, err := session.GetStatus(ctx, c.ep)
	return st, err
}

// SetMock switches backend mock mode.
func (c *Client) SetMock(ctx context.Context, on bool) error {
	_, err := session.ToggleMockMode(ctx, c.ep, on)
	return err
}

// Shutdown asks the backend to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	_, err := session.RequestShutdown(ctx, c.ep)
	return err
}

// Session returns a copy of the mirror.
func (c *Client) Session(ctx context.Context) (*domain.Session, error) {
	return c.manager.LoadOrCreate(ctx, c.session)
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.ep.Close()
}
