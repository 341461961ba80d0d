package domain

// Document is the structured, self-describing form that elements and
// distributions serialize to. It maps one-to-one onto a JSON object.
type Document map[string]any

// Element is the capability shared by everything that can be named, typed
// and turned into a Document. Variable, Factor, Robot and Session implement it
// independently; there is no common base type.
type Element interface {
	Name() string
	Type() string
	ToDocument() Document
}

var (
	_ Element = Variable{}
	_ Element = Factor{}
	_ Element = Robot{}
	_ Element = (*Session)(nil)
)

func cloneFloats(in []float64) []float64 {
	return append([]float64{}, in...)
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}
