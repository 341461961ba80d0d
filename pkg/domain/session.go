package domain

// Session is the local mirror of a factor graph instance. It only reflects
// elements the backend has confirmed and is not authoritative.
//
// Elements are only ever appended. Session does no locking; callers sharing
// one across goroutines must serialize access themselves.
type Session struct {
	name string

	variables map[string]Variable
	varOrder  []string

	factors     map[string]Factor
	factorOrder []string
}

// NewSession creates an empty mirror.
func NewSession(name string) *Session {
	return &Session{
		name:      name,
		variables: make(map[string]Variable),
		factors:   make(map[string]Factor),
	}
}

func (s *Session) Name() string { return s.name }

func (*Session) Type() string { return TypeSession }

// AddVariable inserts v. A name already present is a caller error.
func (s *Session) AddVariable(v Variable) error {
	if _, ok := s.variables[v.Name()]; ok {
		return invariant(TypeSession, "variable %q already in session %q", v.Name(), s.name)
	}
	s.variables[v.Name()] = v
	s.varOrder = append(s.varOrder, v.Name())
	return nil
}

// AddFactor inserts f under its label. A label already present is a caller error.
// Referenced variables are not checked: the backend owns referential integrity.
func (s *Session) AddFactor(f Factor) error {
	label := f.Label()
	if _, ok := s.factors[label]; ok {
		return invariant(TypeSession, "factor %q already in session %q", label, s.name)
	}
	s.factors[label] = f
	s.factorOrder = append(s.factorOrder, label)
	return nil
}

// Variable looks up a variable by name.
func (s *Session) Variable(name string) (Variable, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// Factor looks up a factor by label.
func (s *Session) Factor(label string) (Factor, bool) {
	f, ok := s.factors[label]
	return f, ok
}

func (s *Session) HasVariable(name string) bool {
	_, ok := s.variables[name]
	return ok
}

func (s *Session) HasFactor(label string) bool {
	_, ok := s.factors[label]
	return ok
}

// Variables returns the variables in insertion order.
func (s *Session) Variables() []Variable {
	out := make([]Variable, 0, len(s.varOrder))
	for _, name := range s.varOrder {
		out = append(out, s.variables[name])
	}
	return out
}

// Factors returns the factors in insertion order.
func (s *Session) Factors() []Factor {
	out := make([]Factor, 0, len(s.factorOrder))
	for _, label := range s.factorOrder {
		out = append(out, s.factors[label])
	}
	return out
}

func (s *Session) NumVariables() int { return len(s.varOrder) }

func (s *Session) NumFactors() int { return len(s.factorOrder) }

// Clone returns an independent copy. Elements are immutable, so only the
// containers are copied.
func (s *Session) Clone() *Session {
	c := NewSession(s.name)
	for _, name := range s.varOrder {
		c.variables[name] = s.variables[name]
	}
	for _, label := range s.factorOrder {
		c.factors[label] = s.factors[label]
	}
	c.varOrder = append([]string(nil), s.varOrder...)
	c.factorOrder = append([]string(nil), s.factorOrder...)
	return c
}

// ToDocument builds the snapshot shape
// {name, variables: {name -> Variable}, factors: {label -> Factor}}.
// Map documents carry no order; use the codec snapshot functions when
// insertion order must survive.
func (s *Session) ToDocument() Document {
	variables := make(Document, len(s.varOrder))
	for _, name := range s.varOrder {
		variables[name] = s.variables[name].ToDocument()
	}
	factors := make(Document, len(s.factorOrder))
	for _, label := range s.factorOrder {
		factors[label] = s.factors[label].ToDocument()
	}
	return Document{
		KeyName:      s.name,
		KeyVariables: variables,
		KeyFactors:   factors,
	}
}
