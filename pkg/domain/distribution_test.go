package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianCovarianceShape(t *testing.T) {
	for k := 0; k <= 3; k++ {
		for m := 0; m <= 10; m++ {
			mean := make([]float64, k)
			cov := make([]float64, m)

			_, errN := NewNormalVector(mean, cov)
			_, errMv := NewMvNormal(mean, cov)
			if m == k*k {
				assert.NoError(t, errN, "k=%d m=%d", k, m)
				assert.NoError(t, errMv, "k=%d m=%d", k, m)
				continue
			}
			assert.ErrorIs(t, errN, ErrInvariant, "k=%d m=%d", k, m)
			assert.ErrorIs(t, errMv, ErrInvariant, "k=%d m=%d", k, m)
		}
	}
}

func TestNewNormal_Univariate(t *testing.T) {
	n := NewNormal(1.5, 0.2)
	assert.Equal(t, 1, n.Dim())
	assert.Equal(t, []float64{1.5}, n.Mean())
	assert.Equal(t, []float64{0.2}, n.Cov())
	assert.Equal(t, Document{"distType": "Normal", "mean": []float64{1.5}, "cov": []float64{0.2}}, n.ToDocument())
}

func TestGaussian_NonFinite(t *testing.T) {
	inf, nan := math.Inf(1), math.NaN()
	tests := []struct {
		name string
		mean []float64
		cov  []float64
	}{
		{"nan mean", []float64{nan}, []float64{1}},
		{"infinite mean", []float64{0, math.Inf(-1)}, []float64{1, 0, 0, 1}},
		{"infinite covariance", []float64{0}, []float64{inf}},
		{"nan covariance", []float64{0, 0}, []float64{1, 0, nan, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalVector(tt.mean, tt.cov)
			assert.ErrorIs(t, err, ErrInvariant)
			_, err = NewMvNormal(tt.mean, tt.cov)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(NewNormal(1, 0.5)))
	assert.ErrorIs(t, Validate(NewNormal(math.NaN(), 1)), ErrInvariant)
	assert.ErrorIs(t, Validate(NewNormal(0, math.Inf(1))), ErrInvariant)

	_, err := NewFactor("Prior", []string{"x0"}, NewNormal(0, math.Inf(1)))
	assert.ErrorIs(t, err, ErrInvariant, "factors refuse non-finite measurements")
}

func TestNewMvNormalFromRows(t *testing.T) {
	mv, err := NewMvNormalFromRows([]float64{0, 0}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, mv.Cov())
	assert.Equal(t, 2.0, mv.At(0, 1))
	assert.Equal(t, 3.0, mv.At(1, 0))
	assert.Equal(t, DistMvNormal, mv.DistType())

	_, err = NewMvNormalFromRows([]float64{0, 0}, [][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = NewMvNormalFromRows([]float64{0, 0, 0}, [][]float64{{1, 2}, {3, 4}})
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestGaussian_AccessorsCopy(t *testing.T) {
	mean := []float64{1, 2}
	n, err := NewNormalVector(mean, []float64{1, 0, 0, 1})
	require.NoError(t, err)

	mean[0] = 99
	assert.Equal(t, 1.0, n.Mean()[0], "constructor must copy its input")

	got := n.Cov()
	got[0] = 99
	assert.Equal(t, 1.0, n.Cov()[0], "accessor must return a copy")
}

func TestNewSampleWeights_Validation(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		weights  []float64
		quantile float64
		wantErr  bool
	}{
		{"valid", []float64{1, 2}, []float64{0.5, 0.5}, 0, false},
		{"valid with cutoff", []float64{1, 2}, []float64{0.5, 0.5}, 0.9, false},
		{"empty", nil, nil, 0, false},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0, true},
		{"negative weight", []float64{1}, []float64{-1}, 0, true},
		{"nan weight", []float64{1}, []float64{math.NaN()}, 0, true},
		{"infinite weight", []float64{1}, []float64{math.Inf(1)}, 0, true},
		{"nan sample", []float64{math.NaN()}, []float64{1}, 0, true},
		{"quantile one", []float64{1}, []float64{1}, 1, true},
		{"negative quantile", []float64{1}, []float64{1}, -0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampleWeights(tt.samples, tt.weights, tt.quantile)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvariant)
				var inv *InvariantError
				assert.True(t, errors.As(err, &inv))
				assert.Equal(t, DistSampleWeights, inv.Element)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSampleWeights_Effective(t *testing.T) {
	sw, err := NewSampleWeights([]float64{10, 20, 30, 40}, []float64{0.4, 0.1, 0.3, 0.2}, 0.5)
	require.NoError(t, err)

	samples, weights := sw.Effective()
	assert.Equal(t, []float64{10, 30}, samples)
	assert.Equal(t, []float64{0.4, 0.3}, weights)

	noCut, err := NewSampleWeights([]float64{10, 20}, []float64{0.4, 0.1}, 0)
	require.NoError(t, err)
	samples, weights = noCut.Effective()
	assert.Equal(t, []float64{10, 20}, samples)
	assert.Equal(t, []float64{0.4, 0.1}, weights)
}

func TestSampleWeights_DocumentOmitsZeroQuantile(t *testing.T) {
	sw, err := NewSampleWeights([]float64{1}, []float64{1}, 0)
	require.NoError(t, err)
	assert.NotContains(t, sw.ToDocument(), KeyQuantile)

	sw, err = NewSampleWeights([]float64{1}, []float64{1}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, sw.ToDocument()[KeyQuantile])
}
