package session

import (
	"context"
	"fmt"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
)

// Requester performs one request/reply round trip.
// *endpoint.Endpoint implements it.
type Requester interface {
	SendRequest(ctx context.Context, req codec.Request) (codec.Reply, error)
}

// Result is the outcome of an operation. Reply is set whenever the backend
// answered, including when it rejected the request.
type Result struct {
	Op        string
	Reply     codec.Reply
	Confirmed bool
}

// send runs one request and turns a non-OK reply into a *domain.RejectedError.
func send(ctx context.Context, ep Requester, op string, payload any) (Result, error) {
	reply, err := ep.SendRequest(ctx, codec.NewRequest(op, payload))
	if err != nil {
		return Result{Op: op}, err
	}
	return Result{Op: op, Reply: reply, Confirmed: reply.OK()}, reply.Err(op)
}

// RegisterRobot announces a robot to the backend with payload
// {robot: name}. A non-empty description is sent as an extra
// "description" field, which backends that only read "robot" ignore.
func RegisterRobot(ctx context.Context, ep Requester, robot domain.Robot) (Result, error) {
	payload := domain.Document{codec.KeyRobot: robot.Name()}
	if robot.Description() != "" {
		payload[domain.KeyDescription] = robot.Description()
	}
	return send(ctx, ep, codec.OpRegisterRobot, payload)
}

// RegisterSession opens a session for a robot. The mirror is not touched.
func RegisterSession(ctx context.Context, ep Requester, robot domain.Robot, s *domain.Session) (Result, error) {
	return send(ctx, ep, codec.OpRegisterSession, domain.Document{
		codec.KeyRobot:   robot.Name(),
		codec.KeySession: s.Name(),
	})
}

// AddVariable submits v and records it in the mirror once the backend confirms.
// A name already in the mirror fails locally without sending anything.
func AddVariable(ctx context.Context, ep Requester, s *domain.Session, v domain.Variable) (Result, error) {
	if s.HasVariable(v.Name()) {
		return Result{Op: codec.OpAddVariable}, &domain.InvariantError{
			Element: domain.TypeSession,
			Reason:  fmt.Sprintf("variable %q already in session %q", v.Name(), s.Name()),
		}
	}
	res, err := send(ctx, ep, codec.OpAddVariable, v.ToDocument())
	if err != nil {
		return res, err
	}
	return res, s.AddVariable(v)
}

// AddFactor submits f and records it under its label once the backend
// confirms. Referenced variables are left for the backend to check.
func AddFactor(ctx context.Context, ep Requester, s *domain.Session, f domain.Factor) (Result, error) {
	if s.HasFactor(f.Label()) {
		return Result{Op: codec.OpAddFactor}, &domain.InvariantError{
			Element: domain.TypeSession,
			Reason:  fmt.Sprintf("factor %q already in session %q", f.Label(), s.Name()),
		}
	}
	res, err := send(ctx, ep, codec.OpAddFactor, f.ToDocument())
	if err != nil {
		return res, err
	}
	return res, s.AddFactor(f)
}

// RequestSolve asks for a batch solve. Only the acknowledgement is returned;
// estimates are fetched with the GetVarMAP queries.
func RequestSolve(ctx context.Context, ep Requester) (Result, error) {
	return send(ctx, ep, codec.OpBatchSolve, nil)
}

// GetVarMAPKDE fetches the belief of one variable as a distribution.
func GetVarMAPKDE(ctx context.Context, ep Requester, name string) (domain.Distribution, Result, error) {
	res, err := queryVariable(ctx, ep, codec.OpGetVarMAPKDE, name)
	if err != nil {
		return nil, res, err
	}
	d, err := codec.DecodeKDE(res.Reply)
	return d, res, err
}

// GetVarMAPMax fetches the maximum a-posteriori point of one variable.
func GetVarMAPMax(ctx context.Context, ep Requester, name string) ([]float64, Result, error) {
	return queryPoint(ctx, ep, codec.OpGetVarMAPMax, name)
}

// GetVarMAPMean fetches the mean of one variable's belief.
func GetVarMAPMean(ctx context.Context, ep Requester, name string) ([]float64, Result, error) {
	return queryPoint(ctx, ep, codec.OpGetVarMAPMean, name)
}

func queryPoint(ctx context.Context, ep Requester, op, name string) ([]float64, Result, error) {
	res, err := queryVariable(ctx, ep, op, name)
	if err != nil {
		return nil, res, err
	}
	p, err := codec.DecodePoint(res.Reply)
	return p, res, err
}

func queryVariable(ctx context.Context, ep Requester, op, name string) (Result, error) {
	if name == "" {
		return Result{Op: op}, &domain.InvariantError{Element: "Variable", Reason: "name is required"}
	}
	return send(ctx, ep, op, name)
}

// ListVariables lists the variable names the backend holds.
func ListVariables(ctx context.Context, ep Requester) ([]string, Result, error) {
	l, res, err := list(ctx, ep, true, false)
	return l.Variables, res, err
}

// ListFactors lists the factor labels the backend holds.
func ListFactors(ctx context.Context, ep Requester) ([]string, Result, error) {
	l, res, err := list(ctx, ep, false, true)
	return l.Factors, res, err
}

// List lists variables, factors or both in one request.
func List(ctx context.Context, ep Requester, variables, factors bool) (codec.Listing, Result, error) {
	return list(ctx, ep, variables, factors)
}

func list(ctx context.Context, ep Requester, variables, factors bool) (codec.Listing, Result, error) {
	res, err := send(ctx, ep, codec.OpList, domain.Document{
		domain.KeyVariables: variables,
		domain.KeyFactors:   factors,
	})
	if err != nil {
		return codec.Listing{}, res, err
	}
	l, err := codec.DecodeListing(res.Reply)
	return l, res, err
}

// GetVarsByTag lists the elements carrying a tag.
func GetVarsByTag(ctx context.Context, ep Requester, tag string) (codec.Listing, Result, error) {
	res, err := send(ctx, ep, codec.OpVarQuery, domain.Document{codec.KeyTag: tag})
	if err != nil {
		return codec.Listing{}, res, err
	}
	l, err := codec.DecodeListing(res.Reply)
	return l, res, err
}

// RequestShutdown asks the backend to stop.
func RequestShutdown(ctx context.Context, ep Requester) (Result, error) {
	return send(ctx, ep, codec.OpShutdown, nil)
}

// ToggleMockMode switches the backend's mock mode on or off.
func ToggleMockMode(ctx context.Context, ep Requester, on bool) (Result, error) {
	return send(ctx, ep, codec.OpToggleMock, on)
}

// GetStatus fetches the backend summary.
func GetStatus(ctx context.Context, ep Requester) (codec.Status, Result, error) {
	res, err := send(ctx, ep, codec.OpGetStatus, nil)
	if err != nil {
		return codec.Status{}, res, err
	}
	st, err := codec.DecodeStatus(res.Reply)
	return st, res, err
}
