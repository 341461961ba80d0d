package graff_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/graff"
	"github.com/aretw0/graff/pkg/adapters/memory"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/mockbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_Schemes(t *testing.T) {
	for _, addr := range []string{"tcp://127.0.0.1:5555", "ipc:///tmp/graff.sock", "inproc://graff", "http://127.0.0.1:8080", "https://solver.example", "mem://"} {
		tr, err := graff.NewTransport(addr, nil, nil)
		require.NoError(t, err, addr)
		require.NoError(t, tr.Close())
	}

	_, err := graff.NewTransport("udp://127.0.0.1:1", nil, nil)
	assert.Error(t, err)
	_, err = graff.NewTransport("::not a url", nil, nil)
	assert.Error(t, err)
}

func TestDial_Validation(t *testing.T) {
	_, err := graff.Dial("mem://", graff.WithRobot("", ""))
	assert.ErrorIs(t, err, domain.ErrInvariant)

	_, err = graff.Dial("mem://", graff.WithSession(" "))
	assert.Error(t, err)

	_, err = graff.Dial("ftp://x")
	assert.Error(t, err)
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	backend := mockbackend.New()
	store := memory.NewStore()

	var replies int
	client, err := graff.Dial("mem://",
		graff.WithHandler(backend),
		graff.WithStore(store),
		graff.WithRobot("auv", "test vehicle"),
		graff.WithSession("dive"),
		graff.WithTimeout(time.Second),
		graff.WithHooks(domain.RequestHooks{
			OnReply: func(context.Context, *domain.RequestEvent) { replies++ },
		}),
	)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Register(ctx))
	assert.Equal(t, "auv/dive", backend.Active())
	assert.Equal(t, "auv", client.Robot().Name())

	x0, err := domain.NewVariable("x0", "Pose2")
	require.NoError(t, err)
	res, err := client.AddVariable(ctx, x0)
	require.NoError(t, err)
	assert.True(t, res.Confirmed)

	_, err = client.AddVariable(ctx, x0)
	assert.ErrorIs(t, err, domain.ErrInvariant, "duplicate caught locally")

	l1, err := domain.NewVariable("l1", "Point2")
	require.NoError(t, err)
	_, err = client.AddVariable(ctx, l1)
	require.NoError(t, err)

	br, err := domain.NewFactor("Pose2Point2BearingRange", []string{"x0", "l1"},
		domain.NewNormal(0, 0.1), domain.NewNormal(10, 1))
	require.NoError(t, err)
	_, err = client.AddFactor(ctx, br)
	require.NoError(t, err)

	persisted, err := store.Load(ctx, "dive")
	require.NoError(t, err)
	assert.True(t, persisted.HasFactor("fx0l1"))

	_, err = client.Solve(ctx)
	require.NoError(t, err)

	peak, err := client.MAPMax(ctx, "l1")
	require.NoError(t, err)
	assert.Len(t, peak, 2)

	belief, err := client.KDE(ctx, "x0")
	require.NoError(t, err)
	assert.Equal(t, 3, belief.Dim())

	l, err := client.List(ctx, true, true)
	require.NoError(t, err)
	assert.Equal(t, codec.Listing{Variables: []string{"x0", "l1"}, Factors: []string{"fx0l1"}}, l)

	poses, err := client.ByTag(ctx, mockbackend.TagPose)
	require.NoError(t, err)
	assert.Equal(t, []string{"x0"}, poses.Variables)

	require.NoError(t, client.SetMock(ctx, true))
	st, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Mock)
	assert.Equal(t, 1, st.Solves)

	require.NoError(t, client.Shutdown(ctx))
	<-backend.Done()

	mirror, err := client.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, mirror.NumVariables())
	assert.Positive(t, replies)

	require.NoError(t, client.Close())
	_, err = client.Status(ctx)
	assert.ErrorIs(t, err, domain.ErrTransport)
}
