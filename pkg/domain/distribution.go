package domain

import (
	"math"
	"sort"
)

// Discriminator values written to the distType field.
const (
	DistNormal        = "Normal"
	DistMvNormal      = "MvNormal"
	DistSampleWeights = "SampleWeights"
)

// Distribution is the probability law attached to a factor measurement.
// The set of implementations is closed to Normal, MvNormal and SampleWeights.
type Distribution interface {
	// DistType returns the wire discriminator.
	DistType() string
	// Dim returns the number of dimensions the distribution describes.
	Dim() int
	ToDocument() Document

	sealed()
}

var (
	_ Distribution = Normal{}
	_ Distribution = MvNormal{}
	_ Distribution = SampleWeights{}
)

// gaussian is the payload shared by Normal and MvNormal.
// Covariance is stored as a flattened square matrix in row-major order.
type gaussian struct {
	mean []float64
	cov  []float64
}

func newGaussian(element string, mean, cov []float64) (gaussian, error) {
	k := len(mean)
	if len(cov) != k*k {
		return gaussian{}, invariant(element,
			"covariance has %d values, want %d for a %d-dimensional mean", len(cov), k*k, k)
	}
	if i, ok := firstNonFinite(mean); ok {
		return gaussian{}, invariant(element, "mean %d is %v", i, mean[i])
	}
	if i, ok := firstNonFinite(cov); ok {
		return gaussian{}, invariant(element, "covariance %d is %v", i, cov[i])
	}
	return gaussian{mean: cloneFloats(mean), cov: cloneFloats(cov)}, nil
}

func (g gaussian) Dim() int { return len(g.mean) }

// Mean returns a copy of the mean vector.
func (g gaussian) Mean() []float64 { return cloneFloats(g.mean) }

// Cov returns a copy of the flattened row-major covariance.
func (g gaussian) Cov() []float64 { return cloneFloats(g.cov) }

// At returns covariance entry (row, col).
func (g gaussian) At(row, col int) float64 { return g.cov[row*len(g.mean)+col] }

func (g gaussian) document(distType string) Document {
	return Document{
		KeyDistType: distType,
		KeyMean:     cloneFloats(g.mean),
		KeyCov:      cloneFloats(g.cov),
	}
}

// Normal is a Gaussian measurement. The univariate form is a one-dimensional
// mean with a single variance.
type Normal struct {
	gaussian
}

// NewNormal builds a univariate Normal. It cannot fail; NaN or infinite
// arguments are reported by Validate and refused by NewFactor.
func NewNormal(mean, variance float64) Normal {
	return Normal{gaussian{mean: []float64{mean}, cov: []float64{variance}}}
}

// NewNormalVector builds a multivariate Normal from a mean vector and a
// flattened row-major covariance. It fails unless len(cov) == len(mean)^2.
func NewNormalVector(mean, cov []float64) (Normal, error) {
	g, err := newGaussian(DistNormal, mean, cov)
	if err != nil {
		return Normal{}, err
	}
	return Normal{g}, nil
}

func (Normal) DistType() string { return DistNormal }

func (n Normal) ToDocument() Document { return n.document(DistNormal) }

func (Normal) sealed() {}

// MvNormal is the explicitly multivariate Gaussian variant.
type MvNormal struct {
	gaussian
}

// NewMvNormal builds an MvNormal from a mean and a flattened row-major covariance.
func NewMvNormal(mean, cov []float64) (MvNormal, error) {
	g, err := newGaussian(DistMvNormal, mean, cov)
	if err != nil {
		return MvNormal{}, err
	}
	return MvNormal{g}, nil
}

// NewMvNormalFromRows builds an MvNormal from covariance rows, flattening
// them row-major. Every row must have len(rows) entries.
func NewMvNormalFromRows(mean []float64, rows [][]float64) (MvNormal, error) {
	cov, err := FlattenRows(DistMvNormal, rows)
	if err != nil {
		return MvNormal{}, err
	}
	return NewMvNormal(mean, cov)
}

func (MvNormal) DistType() string { return DistMvNormal }

func (n MvNormal) ToDocument() Document { return n.document(DistMvNormal) }

func (MvNormal) sealed() {}

// FlattenRows flattens a square matrix given as rows into row-major order.
func FlattenRows(element string, rows [][]float64) ([]float64, error) {
	out := make([]float64, 0, len(rows)*len(rows))
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, invariant(element, "covariance row %d has %d values, want %d", i, len(row), len(rows))
		}
		out = append(out, row...)
	}
	return out, nil
}

// SampleWeights is an empirical distribution: parallel samples and weights,
// plus an optional lower-quantile cutoff applied to the weights.
type SampleWeights struct {
	samples  []float64
	weights  []float64
	quantile float64
}

// NewSampleWeights builds an empirical distribution. A zero quantile means no cutoff.
func NewSampleWeights(samples, weights []float64, quantile float64) (SampleWeights, error) {
	if len(samples) != len(weights) {
		return SampleWeights{}, invariant(DistSampleWeights,
			"%d samples but %d weights", len(samples), len(weights))
	}
	if i, ok := firstNonFinite(samples); ok {
		return SampleWeights{}, invariant(DistSampleWeights, "sample %d is %v", i, samples[i])
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return SampleWeights{}, invariant(DistSampleWeights, "weight %d is %v", i, w)
		}
	}
	if quantile < 0 || quantile >= 1 || math.IsNaN(quantile) {
		return SampleWeights{}, invariant(DistSampleWeights, "quantile %v outside [0,1)", quantile)
	}
	return SampleWeights{
		samples:  cloneFloats(samples),
		weights:  cloneFloats(weights),
		quantile: quantile,
	}, nil
}

// Validate reports the invariant a distribution breaks, if any. Values built
// by the fallible constructors always pass; NewNormal and zero values may not.
func Validate(d Distribution) error {
	switch v := d.(type) {
	case Normal:
		_, err := newGaussian(DistNormal, v.mean, v.cov)
		return err
	case MvNormal:
		_, err := newGaussian(DistMvNormal, v.mean, v.cov)
		return err
	case SampleWeights:
		_, err := NewSampleWeights(v.samples, v.weights, v.quantile)
		return err
	default:
		return invariant("Distribution", "unsupported distribution %T", d)
	}
}

func firstNonFinite(values []float64) (int, bool) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, true
		}
	}
	return 0, false
}

func (SampleWeights) DistType() string { return DistSampleWeights }

func (SampleWeights) Dim() int { return 1 }

// Samples returns a copy of the sample values.
func (s SampleWeights) Samples() []float64 { return cloneFloats(s.samples) }

// Weights returns a copy of the weights.
func (s SampleWeights) Weights() []float64 { return cloneFloats(s.weights) }

// Quantile returns the lower-quantile cutoff (0 when unset).
func (s SampleWeights) Quantile() float64 { return s.quantile }

// Effective returns the samples and weights that survive the quantile cutoff:
// every weight below the quantile-th smallest weight is discarded.
func (s SampleWeights) Effective() (samples, weights []float64) {
	if s.quantile == 0 || len(s.weights) == 0 {
		return s.Samples(), s.Weights()
	}
	sorted := s.Weights()
	sort.Float64s(sorted)
	idx := int(math.Floor(s.quantile * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	cutoff := sorted[idx]

	samples = make([]float64, 0, len(s.samples))
	weights = make([]float64, 0, len(s.weights))
	for i, w := range s.weights {
		if w >= cutoff {
			samples = append(samples, s.samples[i])
			weights = append(weights, w)
		}
	}
	return samples, weights
}

func (s SampleWeights) ToDocument() Document {
	doc := Document{
		KeyDistType: DistSampleWeights,
		KeySamples:  cloneFloats(s.samples),
		KeyWeights:  cloneFloats(s.weights),
	}
	if s.quantile != 0 {
		doc[KeyQuantile] = s.quantile
	}
	return doc
}

func (SampleWeights) sealed() {}
