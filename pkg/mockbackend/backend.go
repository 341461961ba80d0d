package mockbackend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
)

// DefaultSession receives elements sent before any registerSession.
const DefaultSession = "default"

var _ ports.RequestHandler = (*Backend)(nil)

// Backend implements ports.RequestHandler. Safe for concurrent use.
type Backend struct {
	logger *slog.Logger

	mu       sync.Mutex
	robots   map[string]domain.Robot
	graphs   map[string]*graph
	active   string
	mock     bool
	solves   int
	handlers map[string]func(codec.Request) codec.Reply

	shutdownOnce sync.Once
	done         chan struct{}
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithMockMode starts the backend with mock mode on.
func WithMockMode(on bool) Option {
	return func(b *Backend) {
		b.mock = on
	}
}

// New creates an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		robots: make(map[string]domain.Robot),
		graphs: map[string]*graph{DefaultSession: newGraph()},
		active: DefaultSession,
		done:   make(chan struct{}),
	}
	b.handlers = map[string]func(codec.Request) codec.Reply{
		codec.OpRegisterRobot:   b.registerRobot,
		codec.OpRegisterSession: b.registerSession,
		codec.OpAddVariable:     b.addVariable,
		codec.OpAddFactor:       b.addFactor,
		codec.OpBatchSolve:      b.batchSolve,
		codec.OpGetVarMAPKDE:    b.getKDE,
		codec.OpGetVarMAPMax:    b.getPoint,
		codec.OpGetVarMAPMean:   b.getPoint,
		codec.OpVarQuery:        b.varQuery,
		codec.OpList:            b.list,
		codec.OpShutdown:        b.shutdown,
		codec.OpToggleMock:      b.toggleMock,
		codec.OpGetStatus:       b.status,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleRequest dispatches one request.
func (b *Backend) HandleRequest(ctx context.Context, req codec.Request) codec.Reply {
	h, ok := b.handlers[req.Op]
	if !ok {
		b.logger.Warn("unknown request", "request", req.Op)
		return codec.ErrorReply(fmt.Sprintf("unknown request %q", req.Op))
	}

	b.mu.Lock()
	reply := h(req)
	b.mu.Unlock()

	if reply.OK() {
		b.logger.Debug("request handled", "request", req.Op, "session", b.Active())
	} else {
		b.logger.Info("request rejected", "request", req.Op, "message", reply.Message())
	}
	return reply
}

// Done is closed once a shutdown request has been served.
func (b *Backend) Done() <-chan struct{} { return b.done }

// Active returns the session new elements go to.
func (b *Backend) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Status returns the same summary getStatus reports.
func (b *Backend) Status() codec.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *Backend) statusLocked() codec.Status {
	g := b.graphs[b.active]
	return codec.Status{
		Robots:    len(b.robots),
		Sessions:  len(b.graphs),
		Variables: len(g.varOrder),
		Factors:   len(g.factorOrder),
		Solves:    b.solves,
		Mock:      b.mock,
	}
}

func (b *Backend) graph() *graph { return b.graphs[b.active] }

func payloadDocument(req codec.Request) (domain.Document, error) {
	doc, ok := req.PayloadDocument()
	if !ok {
		return nil, fmt.Errorf("%s expects a document payload, got %T", req.Op, req.Payload)
	}
	return doc, nil
}

func stringField(doc domain.Document, key string) (string, error) {
	s, ok := doc[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("missing %q", key)
	}
	return s, nil
}

func (b *Backend) registerRobot(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	name, err := stringField(doc, codec.KeyRobot)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	desc, _ := doc[domain.KeyDescription].(string)
	robot, err := domain.NewRobot(name, desc)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	b.robots[name] = robot
	return codec.OKReply(nil)
}

func (b *Backend) registerSession(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	robot, err := stringField(doc, codec.KeyRobot)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	session, err := stringField(doc, codec.KeySession)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	if _, ok := b.robots[robot]; !ok && !b.mock {
		return codec.ErrorReply(fmt.Sprintf("robot %q is not registered", robot))
	}
	key := robot + "/" + session
	if _, ok := b.graphs[key]; !ok {
		b.graphs[key] = newGraph()
	}
	b.active = key
	return codec.OKReply(domain.Document{codec.KeySession: key})
}

func (b *Backend) addVariable(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	v, err := codec.DecodeVariable(doc)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	if err := b.graph().addVariable(v); err != nil {
		return codec.ErrorReply(err.Error())
	}
	return codec.OKReply(nil)
}

func (b *Backend) addFactor(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	f, err := codec.DecodeFactor(doc)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	if err := b.graph().addFactor(f, !b.mock); err != nil {
		return codec.ErrorReply(err.Error())
	}
	return codec.OKReply(domain.Document{domain.KeyLabel: f.Label()})
}

func (b *Backend) batchSolve(codec.Request) codec.Reply {
	b.graph().solve()
	b.solves++
	return codec.OKReply(nil)
}

func (b *Backend) estimate(req codec.Request) ([]float64, error) {
	name, ok := req.PayloadString()
	if !ok || name == "" {
		return nil, fmt.Errorf("%s expects a variable name", req.Op)
	}
	g := b.graph()
	if b.mock {
		return make([]float64, g.dim(name)), nil
	}
	if _, ok := g.variables[name]; !ok {
		return nil, fmt.Errorf("unknown variable %q", name)
	}
	est, ok := g.estimates[name]
	if !ok {
		return nil, fmt.Errorf("variable %q has no estimate; request a solve first", name)
	}
	return append([]float64(nil), est...), nil
}

func (b *Backend) getPoint(req codec.Request) codec.Reply {
	est, err := b.estimate(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	return codec.OKReply(domain.Document{codec.KeyEstimate: est})
}

// kdeVariance is the spread reported around every point estimate.
const kdeVariance = 0.01

func (b *Backend) getKDE(req codec.Request) codec.Reply {
	est, err := b.estimate(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	cov := make([]float64, len(est)*len(est))
	for i := range est {
		cov[i*len(est)+i] = kdeVariance
	}
	belief, err := domain.NewNormalVector(est, cov)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	return codec.OKReply(domain.Document{codec.KeyEstimate: belief.ToDocument()})
}

func (b *Backend) varQuery(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	tag, err := stringField(doc, codec.KeyTag)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	return codec.OKReply(b.graph().byTag(tag).Document())
}

func (b *Backend) list(req codec.Request) codec.Reply {
	doc, err := payloadDocument(req)
	if err != nil {
		return codec.ErrorReply(err.Error())
	}
	wantVars, _ := doc[domain.KeyVariables].(bool)
	wantFactors, _ := doc[domain.KeyFactors].(bool)

	g := b.graph()
	var l codec.Listing
	if wantVars {
		l.Variables = append(l.Variables, g.varOrder...)
	}
	if wantFactors {
		l.Factors = append(l.Factors, g.factorOrder...)
	}
	return codec.OKReply(l.Document())
}

func (b *Backend) shutdown(codec.Request) codec.Reply {
	b.shutdownOnce.Do(func() { close(b.done) })
	return codec.OKReply(nil)
}

func (b *Backend) toggleMock(req codec.Request) codec.Reply {
	on, ok := req.Payload.(bool)
	if !ok {
		return codec.ErrorReply(fmt.Sprintf("%s expects a boolean, got %T", req.Op, req.Payload))
	}
	b.mock = on
	return codec.OKReply(domain.Document{"mock": on})
}

func (b *Backend) status(codec.Request) codec.Reply {
	return codec.OKReply(b.statusLocked().Document())
}
