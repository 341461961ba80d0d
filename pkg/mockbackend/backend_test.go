package mockbackend_test

import (
	"context"
	"testing"

	"github.com/aretw0/graff/pkg/adapters/memory"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/endpoint"
	"github.com/aretw0/graff/pkg/mockbackend"
	"github.com/aretw0/graff/pkg/ports"
	"github.com/aretw0/graff/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts ...mockbackend.Option) (*mockbackend.Backend, *endpoint.Endpoint) {
	t.Helper()
	b := mockbackend.New(opts...)
	ep := endpoint.New(memory.NewTransport(b))
	t.Cleanup(func() { _ = ep.Close() })
	return b, ep
}

func pose(t *testing.T, s *domain.Session, ep *endpoint.Endpoint, name string) {
	t.Helper()
	v, err := domain.NewVariable(name, "Pose2")
	require.NoError(t, err)
	_, err = session.AddVariable(context.Background(), ep, s, v)
	require.NoError(t, err)
}

func gaussianFactor(t *testing.T, typ string, vars []string, mean []float64) domain.Factor {
	t.Helper()
	cov := make([]float64, len(mean)*len(mean))
	for i := range mean {
		cov[i*len(mean)+i] = 0.01
	}
	d, err := domain.NewNormalVector(mean, cov)
	require.NoError(t, err)
	f, err := domain.NewFactor(typ, vars, d)
	require.NoError(t, err)
	return f
}

func TestBackend_RegisterFlow(t *testing.T) {
	ctx := context.Background()
	b, ep := setup(t)

	robot, err := domain.NewRobot("auv", "hovering AUV")
	require.NoError(t, err)
	s := domain.NewSession("dive")

	_, err = session.RegisterSession(ctx, ep, robot, s)
	require.ErrorIs(t, err, domain.ErrRejected, "unregistered robot")

	_, err = session.RegisterRobot(ctx, ep, robot)
	require.NoError(t, err)
	res, err := session.RegisterSession(ctx, ep, robot, s)
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.Equal(t, "auv/dive", b.Active())

	st := b.Status()
	assert.Equal(t, 1, st.Robots)
	assert.Equal(t, 2, st.Sessions, "default plus auv/dive")
}

func TestBackend_ReferentialChecks(t *testing.T) {
	ctx := context.Background()
	_, ep := setup(t)
	s := domain.NewSession("s")

	pose(t, s, ep, "x0")

	f := gaussianFactor(t, "Pose2Pose2", []string{"x0", "x1"}, []float64{1, 0, 0})
	res, err := session.AddFactor(ctx, ep, s, f)
	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, rejected.Message, `unknown variable "x1"`)
	assert.False(t, res.Confirmed)
	assert.False(t, s.HasFactor("fx0x1"))

	pose(t, s, ep, "x1")
	_, err = session.AddFactor(ctx, ep, s, f)
	require.NoError(t, err)
	assert.True(t, s.HasFactor("fx0x1"))
}

func TestBackend_DuplicatesRejected(t *testing.T) {
	ctx := context.Background()
	_, ep := setup(t)

	v, err := domain.NewVariable("x0", "Pose2")
	require.NoError(t, err)

	// Two mirrors sharing one backend: the second one cannot see the first
	// insert locally, so the backend has to refuse it.
	_, err = session.AddVariable(ctx, ep, domain.NewSession("a"), v)
	require.NoError(t, err)
	other := domain.NewSession("b")
	_, err = session.AddVariable(ctx, ep, other, v)
	require.ErrorIs(t, err, domain.ErrRejected)
	assert.False(t, other.HasVariable("x0"))
}

func TestBackend_SolveAndQuery(t *testing.T) {
	ctx := context.Background()
	_, ep := setup(t)
	s := domain.NewSession("s")

	for _, name := range []string{"x0", "x1", "x2"} {
		pose(t, s, ep, name)
	}
	for _, f := range []domain.Factor{
		gaussianFactor(t, "PriorPose2", []string{"x0"}, []float64{1, 2, 0}),
		gaussianFactor(t, "Pose2Pose2", []string{"x1", "x2"}, []float64{0, 5, 0}),
		gaussianFactor(t, "Pose2Pose2", []string{"x0", "x1"}, []float64{10, 0, 0.5}),
	} {
		_, err := session.AddFactor(ctx, ep, s, f)
		require.NoError(t, err)
	}

	_, _, err := session.GetVarMAPMean(ctx, ep, "x2")
	require.ErrorIs(t, err, domain.ErrRejected, "no estimate before a solve")

	_, err = session.RequestSolve(ctx, ep)
	require.NoError(t, err)

	mean, _, err := session.GetVarMAPMean(ctx, ep, "x2")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{11, 7, 0.5}, mean, 1e-9)

	peak, _, err := session.GetVarMAPMax(ctx, ep, "x0")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 0}, peak, 1e-9)

	belief, _, err := session.GetVarMAPKDE(ctx, ep, "x1")
	require.NoError(t, err)
	normal, ok := belief.(domain.Normal)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{11, 2, 0.5}, normal.Mean(), 1e-9)
	assert.InDelta(t, 0.01, normal.At(1, 1), 1e-12)
	assert.InDelta(t, 0, normal.At(0, 1), 1e-12)

	_, _, err = session.GetVarMAPMean(ctx, ep, "l9")
	require.ErrorIs(t, err, domain.ErrRejected)

	st, _, err := session.GetStatus(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, codec.Status{Sessions: 1, Variables: 3, Factors: 3, Solves: 1}, st)
}

func TestBackend_ListAndTags(t *testing.T) {
	ctx := context.Background()
	_, ep := setup(t)
	s := domain.NewSession("s")

	pose(t, s, ep, "x0")
	l, err := domain.NewVariable("l1", "Point2")
	require.NoError(t, err)
	_, err = session.AddVariable(ctx, ep, s, l)
	require.NoError(t, err)
	_, err = session.AddFactor(ctx, ep, s, gaussianFactor(t, "PriorPose2", []string{"x0"}, []float64{0, 0, 0}))
	require.NoError(t, err)

	vars, _, err := session.ListVariables(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, []string{"x0", "l1"}, vars)

	factors, _, err := session.ListFactors(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, []string{"fx0"}, factors)

	both, _, err := session.List(ctx, ep, true, true)
	require.NoError(t, err)
	assert.Equal(t, codec.Listing{Variables: []string{"x0", "l1"}, Factors: []string{"fx0"}}, both)

	landmarks, _, err := session.GetVarsByTag(ctx, ep, mockbackend.TagLandmark)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, landmarks.Variables)
	assert.Empty(t, landmarks.Factors)

	priors, _, err := session.GetVarsByTag(ctx, ep, mockbackend.TagPrior)
	require.NoError(t, err)
	assert.Equal(t, []string{"fx0"}, priors.Factors)
}

func TestBackend_MockMode(t *testing.T) {
	ctx := context.Background()
	b, ep := setup(t)
	s := domain.NewSession("s")

	_, err := session.ToggleMockMode(ctx, ep, true)
	require.NoError(t, err)
	assert.True(t, b.Status().Mock)

	// Without graph checks a factor may precede its variables.
	_, err = session.AddFactor(ctx, ep, s, gaussianFactor(t, "Pose2Pose2", []string{"x0", "x1"}, []float64{1, 0, 0}))
	require.NoError(t, err)

	pose(t, s, ep, "x1")
	mean, _, err := session.GetVarMAPMean(ctx, ep, "x1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, mean)

	_, err = session.ToggleMockMode(ctx, ep, false)
	require.NoError(t, err)
	_, _, err = session.GetVarMAPMean(ctx, ep, "x1")
	require.ErrorIs(t, err, domain.ErrRejected)
}

func TestBackend_Shutdown(t *testing.T) {
	b, ep := setup(t)

	select {
	case <-b.Done():
		t.Fatal("done before shutdown")
	default:
	}

	_, err := session.RequestShutdown(context.Background(), ep)
	require.NoError(t, err)
	_, err = session.RequestShutdown(context.Background(), ep)
	require.NoError(t, err, "second shutdown is harmless")

	select {
	case <-b.Done():
	default:
		t.Fatal("shutdown did not close Done")
	}
}

func TestBackend_ProtocolErrors(t *testing.T) {
	b := mockbackend.New()
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
		msg  string
	}{
		{"unknown op", `{"request":"teleport","payload":{}}`, "unknown request"},
		{"legacy envelope", `{"type":"addVariable","variable":{}}`, "legacy"},
		{"bad variable", `{"request":"addVariable","payload":{"label":"x0"}}`, "variableType"},
		{"toggle not bool", `{"request":"toggleMockServer","payload":"yes"}`, "boolean"},
		{"query without name", `{"request":"GetVarMAPMean","payload":{}}`, "variable name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := codec.UnmarshalReply(ports.ServeBytes(ctx, b, []byte(tt.raw)))
			require.NoError(t, err)
			assert.False(t, reply.OK())
			assert.Contains(t, reply.Message(), tt.msg)
		})
	}
}

func TestDim(t *testing.T) {
	assert.Equal(t, 6, mockbackend.Dim("Pose3"))
	assert.Equal(t, 3, mockbackend.Dim("Pose2"))
	assert.Equal(t, 2, mockbackend.Dim("Point2"))
	assert.Equal(t, 1, mockbackend.Dim("ContinuousScalar"))
}
