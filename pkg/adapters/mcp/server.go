// Package mcp exposes a graff session as Model Context Protocol tools so an
// agent can build and query a factor graph.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Query kinds accepted by the query tool.
const (
	KindKDE  = "kde"
	KindMax  = "max"
	KindMean = "mean"
)

// SessionURI is the resource that serves the mirror snapshot.
const SessionURI = "graff://session"

// VariableArgs are the arguments of add_variable.
type VariableArgs struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FactorArgs are the arguments of add_factor. The measurement is a single
// Gaussian with a flattened row-major covariance.
type FactorArgs struct {
	Type         string    `json:"type"`
	Variables    []string  `json:"variables"`
	Distribution string    `json:"distribution,omitempty"`
	Mean         []float64 `json:"mean"`
	Cov          []float64 `json:"cov"`
}

// QueryArgs are the arguments of query.
type QueryArgs struct {
	Variable string `json:"variable"`
	Kind     string `json:"kind,omitempty"`
}

// MutationResult reports whether the backend accepted a mutation.
type MutationResult struct {
	Op        string `json:"op" jsonschema_description:"Request that was sent"`
	Label     string `json:"label" jsonschema_description:"Name of the variable or factor"`
	Confirmed bool   `json:"confirmed" jsonschema_description:"True when the backend answered OK and the mirror was updated"`
	Message   string `json:"message,omitempty" jsonschema_description:"Backend message for rejected requests"`
}

// QueryResult carries a point estimate or a belief document.
type QueryResult struct {
	Variable string          `json:"variable"`
	Kind     string          `json:"kind"`
	Point    []float64       `json:"point,omitempty"`
	Belief   domain.Document `json:"belief,omitempty"`
}

// Server binds MCP tools to one backend endpoint and one stored session.
type Server struct {
	ep        session.Requester
	manager   *session.Manager
	name      string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*config)

type config struct {
	version string
	logger  *slog.Logger
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(c *config) { c.version = v }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// NewServer serves the session called name. Confirmed mutations are
// persisted through manager.
func NewServer(ep session.Requester, manager *session.Manager, name string, opts ...Option) *Server {
	cfg := config{version: "dev", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		ep:        ep,
		manager:   manager,
		name:      name,
		logger:    cfg.logger,
		mcpServer: server.NewMCPServer("graff-mcp", cfg.version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server, e.g. to mount another transport.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("add_variable",
		mcp.WithDescription("Add a variable (pose or landmark) to the factor graph."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Variable name, e.g. x0 or l1")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Variable type, e.g. Pose2, Point2, Pose3")),
		mcp.WithOutputSchema[MutationResult](),
	), mcp.NewStructuredToolHandler(s.handleAddVariable))

	s.mcpServer.AddTool(mcp.NewTool("add_factor",
		mcp.WithDescription("Add a factor with one Gaussian measurement. The label is f followed by the variable names."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Factor type, e.g. PriorPose2 or Pose2Pose2")),
		mcp.WithArray("variables", mcp.Required(), mcp.Description("Variable names in argument order"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("distribution", mcp.Description("Normal (default) or MvNormal"),
			mcp.Enum(domain.DistNormal, domain.DistMvNormal)),
		mcp.WithArray("mean", mcp.Required(), mcp.Description("Mean vector"),
			mcp.Items(map[string]any{"type": "number"})),
		mcp.WithArray("cov", mcp.Required(), mcp.Description("Covariance, row-major, len(mean)^2 values"),
			mcp.Items(map[string]any{"type": "number"})),
		mcp.WithOutputSchema[MutationResult](),
	), mcp.NewStructuredToolHandler(s.handleAddFactor))

	s.mcpServer.AddTool(mcp.NewTool("solve",
		mcp.WithDescription("Ask the backend to solve the graph."),
	), s.handleSolve)

	s.mcpServer.AddTool(mcp.NewTool("query",
		mcp.WithDescription("Read the estimate of a variable after a solve."),
		mcp.WithString("variable", mcp.Required(), mcp.Description("Variable name")),
		mcp.WithString("kind", mcp.Description("kde, max or mean (default)"), mcp.Enum(KindKDE, KindMax, KindMean)),
		mcp.WithOutputSchema[QueryResult](),
	), mcp.NewStructuredToolHandler(s.handleQuery))

	s.mcpServer.AddTool(mcp.NewTool("list",
		mcp.WithDescription("List the variables and factors the backend holds."),
		mcp.WithOutputSchema[codec.Listing](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Backend status counters."),
		mcp.WithOutputSchema[codec.Status](),
	), mcp.NewStructuredToolHandler(s.handleStatus))
}

func (s *Server) mutationResult(res session.Result, label string, err error) (MutationResult, error) {
	out := MutationResult{Op: res.Op, Label: label, Confirmed: res.Confirmed}
	var rejected *domain.RejectedError
	if errors.As(err, &rejected) {
		out.Message = rejected.Message
		s.logger.Info("mutation rejected", "op", res.Op, "label", label, "message", rejected.Message)
		return out, nil
	}
	return out, err
}

func (s *Server) handleAddVariable(ctx context.Context, _ mcp.CallToolRequest, args VariableArgs) (MutationResult, error) {
	v, err := domain.NewVariable(args.Name, args.Type)
	if err != nil {
		return MutationResult{}, err
	}
	res, err := s.manager.AddVariable(ctx, s.ep, s.name, v)
	return s.mutationResult(res, v.Name(), err)
}

func (s *Server) handleAddFactor(ctx context.Context, _ mcp.CallToolRequest, args FactorArgs) (MutationResult, error) {
	var (
		d   domain.Distribution
		err error
	)
	switch args.Distribution {
	case "", domain.DistNormal:
		d, err = domain.NewNormalVector(args.Mean, args.Cov)
	case domain.DistMvNormal:
		d, err = domain.NewMvNormal(args.Mean, args.Cov)
	default:
		return MutationResult{}, fmt.Errorf("unsupported distribution %q", args.Distribution)
	}
	if err != nil {
		return MutationResult{}, err
	}
	f, err := domain.NewFactor(args.Type, args.Variables, d)
	if err != nil {
		return MutationResult{}, err
	}
	res, err := s.manager.AddFactor(ctx, s.ep, s.name, f)
	return s.mutationResult(res, f.Label(), err)
}

func (s *Server) handleSolve(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := session.RequestSolve(ctx, s.ep); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("solve failed: %v", err)), nil
	}
	return mcp.NewToolResultText("solve requested"), nil
}

func (s *Server) handleQuery(ctx context.Context, _ mcp.CallToolRequest, args QueryArgs) (QueryResult, error) {
	out := QueryResult{Variable: args.Variable, Kind: args.Kind}
	if out.Kind == "" {
		out.Kind = KindMean
	}

	var err error
	switch out.Kind {
	case KindKDE:
		var belief domain.Distribution
		belief, _, err = session.GetVarMAPKDE(ctx, s.ep, args.Variable)
		if err == nil {
			out.Belief = belief.ToDocument()
		}
	case KindMax:
		out.Point, _, err = session.GetVarMAPMax(ctx, s.ep, args.Variable)
	case KindMean:
		out.Point, _, err = session.GetVarMAPMean(ctx, s.ep, args.Variable)
	default:
		return QueryResult{}, fmt.Errorf("unknown query kind %q", args.Kind)
	}
	if err != nil {
		return QueryResult{}, err
	}
	return out, nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (codec.Listing, error) {
	l, _, err := session.List(ctx, s.ep, true, true)
	return l, err
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (codec.Status, error) {
	st, _, err := session.GetStatus(ctx, s.ep)
	return st, err
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SessionURI, "Session mirror",
		mcp.WithResourceDescription("Confirmed variables and factors of the served session, in insertion order."),
		mcp.WithMIMEType("application/json"),
	), s.readSession)
}

func (s *Server) readSession(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	mirror, err := s.manager.LoadOrCreate(ctx, s.name)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	data, err := codec.MarshalSnapshotIndent(mirror)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SessionURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
