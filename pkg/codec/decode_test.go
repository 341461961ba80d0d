package codec

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/graff/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// viaJSON pushes a document through JSON bytes the way a reply would arrive.
func viaJSON(t *testing.T, doc domain.Document) domain.Document {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func distributions(t *testing.T) map[string]domain.Distribution {
	t.Helper()
	vec, err := domain.NewNormalVector([]float64{10, 0, 1.047}, []float64{0.01, 0, 0, 0, 0.01, 0, 0, 0, 0.01})
	require.NoError(t, err)
	mv, err := domain.NewMvNormalFromRows([]float64{1, 2}, [][]float64{{1, 0.5}, {0.5, 2}})
	require.NoError(t, err)
	sw, err := domain.NewSampleWeights([]float64{0.1, 0.2, 0.3, 0.4}, []float64{1, 2, 3, 4}, 0.25)
	require.NoError(t, err)
	swNoCut, err := domain.NewSampleWeights([]float64{5}, []float64{1}, 0)
	require.NoError(t, err)

	return map[string]domain.Distribution{
		"normal":            domain.NewNormal(0, 0.1),
		"normal vector":     vec,
		"mvnormal":          mv,
		"sample weights":    sw,
		"sample weights q0": swNoCut,
	}
}

func TestDecodeDistribution_RoundTrip(t *testing.T) {
	for name, d := range distributions(t) {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeDistribution(d.ToDocument())
			require.NoError(t, err)
			assert.Equal(t, d, got)

			got, err = DecodeDistribution(viaJSON(t, d.ToDocument()))
			require.NoError(t, err)
			assert.Equal(t, d, got)
		})
	}
}

func TestDecodeDistribution_NestedCovariance(t *testing.T) {
	doc := viaJSON(t, domain.Document{
		"distType": "MvNormal",
		"mean":     []float64{1, 2},
		"cov":      [][]float64{{1, 0.5}, {0.25, 2}},
	})
	d, err := DecodeDistribution(doc)
	require.NoError(t, err)

	mv, ok := d.(domain.MvNormal)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0.5, 0.25, 2}, mv.Cov())
	assert.Equal(t, 0.25, mv.At(1, 0))
}

func TestDecodeDistribution_YAMLIntegers(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte("distType: Normal\nmean: [1, 2]\ncov: [1, 0, 0, 1]\n"), &doc))

	d, err := DecodeDistribution(doc)
	require.NoError(t, err)
	n := d.(domain.Normal)
	assert.Equal(t, []float64{1, 2}, n.Mean())
}

func TestDecodeDistribution_ScalarLifted(t *testing.T) {
	d, err := DecodeDistribution(domain.Document{"distType": "Normal", "mean": 3.0, "cov": 0.5})
	require.NoError(t, err)
	assert.Equal(t, domain.NewNormal(3, 0.5), d)
}

func TestDecodeDistribution_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.Document
	}{
		{"missing discriminator", domain.Document{"mean": []float64{1}, "cov": []float64{1}}},
		{"unknown discriminator", domain.Document{"distType": "Cauchy"}},
		{"missing cov", domain.Document{"distType": "Normal", "mean": []float64{1}}},
		{"covariance size", domain.Document{"distType": "Normal", "mean": []float64{1, 2}, "cov": []float64{1, 0, 1}}},
		{"ragged rows", domain.Document{"distType": "MvNormal", "mean": []float64{1, 2}, "cov": [][]float64{{1, 0}, {1}}}},
		{"not numeric", domain.Document{"distType": "Normal", "mean": []any{"a"}, "cov": []float64{1}}},
		{"sample length", domain.Document{"distType": "SampleWeights", "samples": []float64{1, 2}, "weights": []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDistribution(tt.doc)
			assert.ErrorIs(t, err, domain.ErrDecode)
		})
	}
}

func TestDecodeDistribution_InvariantCauseKept(t *testing.T) {
	_, err := DecodeDistribution(domain.Document{"distType": "Normal", "mean": []float64{1, 2}, "cov": []float64{1}})
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.ErrorIs(t, err, domain.ErrInvariant)
}

func TestDecodeElements_RoundTrip(t *testing.T) {
	v, err := domain.NewVariable("l1", "Point3")
	require.NoError(t, err)
	gotV, err := DecodeVariable(viaJSON(t, v.ToDocument()))
	require.NoError(t, err)
	assert.Equal(t, v, gotV)

	r, err := domain.NewRobot("auv", "hovering AUV")
	require.NoError(t, err)
	gotR, err := DecodeRobot(viaJSON(t, r.ToDocument()))
	require.NoError(t, err)
	assert.Equal(t, r, gotR)

	var dists []domain.Distribution
	for _, name := range []string{"normal", "mvnormal", "sample weights"} {
		dists = append(dists, distributions(t)[name])
	}
	f, err := domain.NewFactor("Mixed", []string{"x0", "l1"}, dists...)
	require.NoError(t, err)
	gotF, err := DecodeFactor(viaJSON(t, f.ToDocument()))
	require.NoError(t, err)
	assert.Equal(t, f, gotF)
	assert.Len(t, gotF.Measurement(), 3)
}

func TestDecodeFactor_SingleMeasurementDocument(t *testing.T) {
	doc := viaJSON(t, domain.Document{
		"factorType":  "Prior",
		"variables":   []string{"x0"},
		"measurement": domain.NewNormal(0, 1).ToDocument(),
	})
	f, err := DecodeFactor(doc)
	require.NoError(t, err)
	require.Len(t, f.Measurement(), 1)
	assert.Equal(t, domain.NewNormal(0, 1), f.Measurement()[0])
}

func TestDecodeFactor_Errors(t *testing.T) {
	_, err := DecodeFactor(domain.Document{"variables": []string{"x0"}})
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = DecodeFactor(domain.Document{"factorType": "Prior", "variables": []string{"x0"}, "measurement": []any{1}})
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = DecodeFactor(domain.Document{
		"factorType":  "Prior",
		"variables":   []string{"x0"},
		"measurement": []any{map[string]any{"distType": "Bogus"}},
	})
	assert.ErrorIs(t, err, domain.ErrDecode)
}

func TestDecodeVariable_Errors(t *testing.T) {
	_, err := DecodeVariable(domain.Document{"label": "x0"})
	assert.ErrorIs(t, err, domain.ErrDecode)

	_, err = DecodeVariable(domain.Document{"label": "", "variableType": "Pose2"})
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.ErrorIs(t, err, domain.ErrInvariant)
}
