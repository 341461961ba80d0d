package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/graff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a
// SnapshotStore implementation adheres to the interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := contractSession(t, name)
		require.NoError(t, store.Save(ctx, name, s), "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.Name(), loaded.Name())
		assert.Equal(t, s.Variables(), loaded.Variables())
		assert.Equal(t, s.Factors(), loaded.Factors())
	})

	t.Run("Save Replaces", func(t *testing.T) {
		s := contractSession(t, name)
		v, err := domain.NewVariable("x9", "Pose2")
		require.NoError(t, err)
		require.NoError(t, s.AddVariable(v))
		require.NoError(t, store.Save(ctx, name, s))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.True(t, loaded.HasVariable("x9"))
	})

	t.Run("Load Returns Independent Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		v, err := domain.NewVariable("scratch", "Pose2")
		require.NoError(t, err)
		require.NoError(t, loaded.AddVariable(v))

		again, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.False(t, again.HasVariable("scratch"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractSession(t, name)))
		require.NoError(t, store.Delete(ctx, name), "Delete should not return error")

		_, err := store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, name), "Delete of a missing session should succeed")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		require.NoError(t, store.Save(ctx, id1, contractSession(t, id1)))
		require.NoError(t, store.Save(ctx, id2, contractSession(t, id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
	})
}

func contractSession(t *testing.T, name string) *domain.Session {
	t.Helper()
	s := domain.NewSession(name)
	for _, n := range []string{"x1", "x0"} {
		v, err := domain.NewVariable(n, "Pose2")
		require.NoError(t, err)
		require.NoError(t, s.AddVariable(v))
	}
	odo, err := domain.NewMvNormalFromRows([]float64{1, 0, 0.5}, [][]float64{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.01}})
	require.NoError(t, err)
	f, err := domain.NewFactor("Pose2Pose2", []string{"x1", "x0"}, odo)
	require.NoError(t, err)
	require.NoError(t, s.AddFactor(f))

	sw, err := domain.NewSampleWeights([]float64{1, 2, 3}, []float64{0.2, 0.5, 0.3}, 0.1)
	require.NoError(t, err)
	prior, err := domain.NewFactor("PartialPrior", []string{"x0"}, sw, domain.NewNormal(0, 2))
	require.NoError(t, err)
	require.NoError(t, s.AddFactor(prior.WithLabel("px0")))
	return s
}
