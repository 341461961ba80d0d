package scenario

import (
	"fmt"

	"github.com/aretw0/graff/pkg/domain"
)

// Step is one element of a plan. Exactly one of Variable and Factor is set.
type Step struct {
	Variable *domain.Variable
	Factor   *domain.Factor
}

// Name is the variable name or the factor label.
func (s Step) Name() string {
	if s.Variable != nil {
		return s.Variable.Name()
	}
	return s.Factor.Label()
}

// Plan is a graph to submit, in order.
type Plan struct {
	Robot   domain.Robot
	Session string
	// Mock asks the backend for mock mode before anything else is sent.
	Mock bool
	// Solve requests a batch solve after the last step.
	Solve bool
	Steps []Step
}

// NumVariables counts variable steps.
func (p *Plan) NumVariables() int {
	n := 0
	for _, s := range p.Steps {
		if s.Variable != nil {
			n++
		}
	}
	return n
}

// NumFactors counts factor steps.
func (p *Plan) NumFactors() int { return len(p.Steps) - p.NumVariables() }

// builder accumulates steps and keeps the first construction error.
type builder struct {
	plan *Plan
	err  error
}

func (b *builder) variable(name, typ string) {
	if b.err != nil {
		return
	}
	v, err := domain.NewVariable(name, typ)
	if err != nil {
		b.err = err
		return
	}
	b.plan.Steps = append(b.plan.Steps, Step{Variable: &v})
}

func (b *builder) factor(typ string, vars []string, dists ...domain.Distribution) {
	if b.err != nil {
		return
	}
	f, err := domain.NewFactor(typ, vars, dists...)
	if err != nil {
		b.err = err
		return
	}
	b.plan.Steps = append(b.plan.Steps, Step{Factor: &f})
}

func (b *builder) normal(mean, cov []float64) domain.Distribution {
	if b.err != nil {
		return nil
	}
	d, err := domain.NewNormalVector(mean, cov)
	if err != nil {
		b.err = err
		return nil
	}
	return d
}

func (b *builder) done() (*Plan, error) {
	if b.err != nil {
		return nil, fmt.Errorf("build plan: %w", b.err)
	}
	return b.plan, nil
}

// diag returns a flattened k*k matrix with v on the diagonal.
func diag(v ...float64) []float64 {
	k := len(v)
	out := make([]float64, k*k)
	for i, x := range v {
		out[i*k+i] = x
	}
	return out
}

func pose(i int) string { return fmt.Sprintf("x%d", i) }
