package domain

import (
	"fmt"
	"strings"
)

// Variable is a node of the factor graph: a pose or landmark placeholder.
// No state estimate is held locally; the backend owns it.
type Variable struct {
	name         string
	variableType string
}

// NewVariable builds a Variable such as ("x0", "Pose2") or ("l1", "Point3").
func NewVariable(name, variableType string) (Variable, error) {
	if strings.TrimSpace(name) == "" {
		return Variable{}, invariant("Variable", "name is required")
	}
	if strings.TrimSpace(variableType) == "" {
		return Variable{}, invariant("Variable", "type is required for %q", name)
	}
	return Variable{name: name, variableType: variableType}, nil
}

func (v Variable) Name() string { return v.name }

func (v Variable) Type() string { return v.variableType }

func (v Variable) ToDocument() Document {
	return Document{
		KeyLabel:        v.name,
		KeyVariableType: v.variableType,
	}
}

// Factor is a measurement constraint over an ordered list of variables.
// The order of Variables decides which argument of the measurement model each
// variable fills. A factor carries one Distribution per measurement axis.
type Factor struct {
	factorType  string
	variables   []string
	measurement []Distribution
	label       string
}

// NewFactor builds a Factor such as ("Pose2Pose2", ["x0","x1"], odometry).
func NewFactor(factorType string, variables []string, measurement ...Distribution) (Factor, error) {
	if strings.TrimSpace(factorType) == "" {
		return Factor{}, invariant("Factor", "type is required")
	}
	if len(variables) == 0 {
		return Factor{}, invariant("Factor", "%s needs at least one variable", factorType)
	}
	for i, name := range variables {
		if strings.TrimSpace(name) == "" {
			return Factor{}, invariant("Factor", "%s variable %d has an empty name", factorType, i)
		}
	}
	for i, d := range measurement {
		if d == nil {
			return Factor{}, invariant("Factor", "%s distribution %d is nil", factorType, i)
		}
		if err := Validate(d); err != nil {
			return Factor{}, fmt.Errorf("%s distribution %d: %w", factorType, i, err)
		}
	}
	return Factor{
		factorType:  factorType,
		variables:   cloneStrings(variables),
		measurement: append([]Distribution{}, measurement...),
	}, nil
}

// DerivedLabel is the local naming convention for factors:
// "f" followed by the variable names in order.
func DerivedLabel(variables []string) string {
	return "f" + strings.Join(variables, "")
}

// WithLabel returns a copy of the factor that uses label instead of the
// derived one, e.g. when the backend assigned its own.
func (f Factor) WithLabel(label string) Factor {
	f.variables = cloneStrings(f.variables)
	f.measurement = append([]Distribution{}, f.measurement...)
	f.label = label
	return f
}

// Label returns the explicit label if one was set, the derived one otherwise.
func (f Factor) Label() string {
	if f.label != "" {
		return f.label
	}
	return DerivedLabel(f.variables)
}

func (f Factor) Name() string { return f.Label() }

func (f Factor) Type() string { return f.factorType }

// Variables returns a copy of the variable names in argument order.
func (f Factor) Variables() []string { return cloneStrings(f.variables) }

// Measurement returns the distributions in input order.
func (f Factor) Measurement() []Distribution {
	return append([]Distribution{}, f.measurement...)
}

// ToDocument encodes the factor. The measurement field is always a sequence,
// one document per distribution, even when there is only one.
func (f Factor) ToDocument() Document {
	measurement := make([]Document, 0, len(f.measurement))
	for _, d := range f.measurement {
		measurement = append(measurement, d.ToDocument())
	}
	return Document{
		KeyFactorType:  f.factorType,
		KeyVariables:   cloneStrings(f.variables),
		KeyMeasurement: measurement,
	}
}

// Robot is the identity used to scope registration calls.
type Robot struct {
	name        string
	description string
}

// NewRobot builds a Robot; the description is optional free text.
func NewRobot(name, description string) (Robot, error) {
	if strings.TrimSpace(name) == "" {
		return Robot{}, invariant(TypeRobot, "name is required")
	}
	return Robot{name: name, description: description}, nil
}

func (r Robot) Name() string { return r.name }

func (Robot) Type() string { return TypeRobot }

func (r Robot) Description() string { return r.description }

func (r Robot) ToDocument() Document {
	doc := Document{KeyName: r.name}
	if r.description != "" {
		doc[KeyDescription] = r.description
	}
	return doc
}
