package codec

import (
	"strings"
	"testing"

	"github.com/aretw0/graff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession(t *testing.T) *domain.Session {
	t.Helper()
	s := domain.NewSession("dive-1")
	// Names chosen so that sorted order differs from insertion order.
	for _, name := range []string{"x1", "x0", "l7"} {
		v, err := domain.NewVariable(name, "Pose2")
		require.NoError(t, err)
		require.NoError(t, s.AddVariable(v))
	}
	odo, err := domain.NewNormalVector([]float64{10, 0, 1.047}, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	require.NoError(t, err)
	f, err := domain.NewFactor("Pose2Pose2", []string{"x1", "x0"}, odo)
	require.NoError(t, err)
	require.NoError(t, s.AddFactor(f))

	prior, err := domain.NewFactor("Prior", []string{"x0"}, domain.NewNormal(0, 1))
	require.NoError(t, err)
	require.NoError(t, s.AddFactor(prior.WithLabel("backend-7")))
	return s
}

func TestSnapshotJSON_RoundTrip(t *testing.T) {
	s := sampleSession(t)
	raw, err := MarshalSnapshotIndent(s)
	require.NoError(t, err)

	text := string(raw)
	assert.Less(t, strings.Index(text, `"x1"`), strings.Index(text, `"x0"`))
	assert.Less(t, strings.Index(text, `"x0": {`), strings.Index(text, `"l7"`))

	got, err := UnmarshalSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, "backend-7", got.Factors()[1].Label())
}

func TestSnapshotJSON_MatchesDocument(t *testing.T) {
	s := sampleSession(t)
	raw, err := MarshalSnapshot(s)
	require.NoError(t, err)

	canonical, err := MarshalReply(NewReply(s.ToDocument()))
	require.NoError(t, err)
	assert.JSONEq(t, string(canonical), string(raw))
}

func TestSnapshotYAML_RoundTrip(t *testing.T) {
	s := sampleSession(t)
	raw, err := MarshalSnapshotYAML(s)
	require.NoError(t, err)

	text := string(raw)
	assert.Less(t, strings.Index(text, "x1:"), strings.Index(text, "x0:"))

	got, err := UnmarshalSnapshotYAML(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSnapshot_Empty(t *testing.T) {
	s := domain.NewSession("empty")

	raw, err := MarshalSnapshot(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"empty","variables":{},"factors":{}}`, string(raw))
	got, err := UnmarshalSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	raw, err = MarshalSnapshotYAML(s)
	require.NoError(t, err)
	got, err = UnmarshalSnapshotYAML(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestUnmarshalSnapshot_Errors(t *testing.T) {
	for _, raw := range []string{
		`[]`,
		`{"variables":{}}`,
		`{"name":"s","variables":{"x0":{"label":"x9","variableType":"Pose2"}}}`,
		`{"name":"s","factors":{"f":{"factorType":"Prior","variables":["x0"],"measurement":[{"distType":"?"}]}}}`,
	} {
		_, err := UnmarshalSnapshot([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrDecode, raw)
	}
}
