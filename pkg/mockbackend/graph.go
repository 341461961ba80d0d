package mockbackend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
)

// Tags answered by varQuery. Every variable carries TagVariable, every
// factor TagFactor; poses and landmarks are tagged by their type name.
const (
	TagVariable = "VARIABLE"
	TagFactor   = "FACTOR"
	TagPose     = "POSE"
	TagLandmark = "LANDMARK"
	TagPrior    = "PRIOR"
)

// propagationPasses bounds dead reckoning over chains that are not in
// insertion order.
const propagationPasses = 8

type graph struct {
	variables map[string]domain.Variable
	varOrder  []string

	factors     map[string]domain.Factor
	factorOrder []string

	estimates map[string][]float64
}

func newGraph() *graph {
	return &graph{
		variables: make(map[string]domain.Variable),
		factors:   make(map[string]domain.Factor),
		estimates: make(map[string][]float64),
	}
}

func (g *graph) addVariable(v domain.Variable) error {
	if _, ok := g.variables[v.Name()]; ok {
		return fmt.Errorf("variable %q already exists", v.Name())
	}
	g.variables[v.Name()] = v
	g.varOrder = append(g.varOrder, v.Name())
	return nil
}

func (g *graph) addFactor(f domain.Factor, checkRefs bool) error {
	label := f.Label()
	if _, ok := g.factors[label]; ok {
		return fmt.Errorf("factor %q already exists", label)
	}
	if checkRefs {
		for _, name := range f.Variables() {
			if _, ok := g.variables[name]; !ok {
				return fmt.Errorf("factor %q references unknown variable %q", label, name)
			}
		}
	}
	g.factors[label] = f
	g.factorOrder = append(g.factorOrder, label)
	return nil
}

// Dim is the estimate length reported for a variable type.
func Dim(variableType string) int {
	switch variableType {
	case "Pose3":
		return 6
	case "Pose2", "Point3":
		return 3
	case "Point2":
		return 2
	default:
		return 1
	}
}

func (g *graph) dim(name string) int {
	if v, ok := g.variables[name]; ok {
		return Dim(v.Type())
	}
	return 1
}

// solve rebuilds every estimate. Unary Gaussian factors covering every
// dimension of their variable anchor it at their mean (partial priors are
// ignored); binary Gaussian factors place the second variable at the first
// plus the measured mean. Anything else leaves the variable at the origin.
func (g *graph) solve() {
	g.estimates = make(map[string][]float64, len(g.varOrder))
	for _, label := range g.factorOrder {
		f := g.factors[label]
		vars := f.Variables()
		if len(vars) != 1 {
			continue
		}
		if mean, ok := gaussianMean(f); ok && len(mean) == g.dim(vars[0]) {
			g.estimates[vars[0]] = fit(mean, g.dim(vars[0]))
		}
	}
	for pass := 0; pass < propagationPasses; pass++ {
		changed := false
		for _, label := range g.factorOrder {
			f := g.factors[label]
			vars := f.Variables()
			if len(vars) != 2 {
				continue
			}
			from, ok := g.estimates[vars[0]]
			if !ok {
				continue
			}
			if _, done := g.estimates[vars[1]]; done {
				continue
			}
			if _, known := g.variables[vars[1]]; !known {
				continue
			}
			delta, ok := gaussianMean(f)
			if !ok {
				continue
			}
			to := fit(from, g.dim(vars[1]))
			for i := range to {
				if i < len(delta) {
					to[i] += delta[i]
				}
			}
			g.estimates[vars[1]] = to
			changed = true
		}
		if !changed {
			break
		}
	}
	for _, name := range g.varOrder {
		if _, ok := g.estimates[name]; !ok {
			g.estimates[name] = make([]float64, g.dim(name))
		}
	}
}

// gaussianMean returns the mean of a factor whose single measurement is
// Gaussian.
func gaussianMean(f domain.Factor) ([]float64, bool) {
	m := f.Measurement()
	if len(m) != 1 {
		return nil, false
	}
	switch d := m[0].(type) {
	case domain.Normal:
		return d.Mean(), true
	case domain.MvNormal:
		return d.Mean(), true
	}
	return nil, false
}

func fit(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)
	return out
}

func variableTags(v domain.Variable) []string {
	tags := []string{TagVariable}
	switch {
	case strings.HasPrefix(v.Type(), "Pose"):
		tags = append(tags, TagPose)
	case strings.HasPrefix(v.Type(), "Point"):
		tags = append(tags, TagLandmark)
	}
	return tags
}

func factorTags(f domain.Factor) []string {
	tags := []string{TagFactor}
	if len(f.Variables()) == 1 {
		tags = append(tags, TagPrior)
	}
	return tags
}

func (g *graph) byTag(tag string) codec.Listing {
	l := codec.Listing{Variables: []string{}, Factors: []string{}}
	for _, name := range g.varOrder {
		if slices.Contains(variableTags(g.variables[name]), tag) {
			l.Variables = append(l.Variables, name)
		}
	}
	for _, label := range g.factorOrder {
		if slices.Contains(factorTags(g.factors[label]), tag) {
			l.Factors = append(l.Factors, label)
		}
	}
	return l
}
