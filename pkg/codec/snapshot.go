package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/graff/pkg/domain"
	"gopkg.in/yaml.v3"
)

type keyedDocument struct {
	key string
	doc domain.Document
}

// MarshalSnapshot encodes the session document as JSON. Variables and factors
// are written in insertion order.
func MarshalSnapshot(s *domain.Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, domain.KeyName, s.Name()); err != nil {
		return nil, err
	}

	buf.WriteByte(',')
	vars := make([]keyedDocument, 0, s.NumVariables())
	for _, v := range s.Variables() {
		vars = append(vars, keyedDocument{key: v.Name(), doc: v.ToDocument()})
	}
	if err := writeObject(&buf, domain.KeyVariables, vars); err != nil {
		return nil, err
	}

	buf.WriteByte(',')
	factors := make([]keyedDocument, 0, s.NumFactors())
	for _, f := range s.Factors() {
		factors = append(factors, keyedDocument{key: f.Label(), doc: f.ToDocument()})
	}
	if err := writeObject(&buf, domain.KeyFactors, factors); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalSnapshotIndent is MarshalSnapshot with two-space indentation.
func MarshalSnapshotIndent(s *domain.Session) ([]byte, error) {
	raw, err := MarshalSnapshot(s)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func writeObject(buf *bytes.Buffer, key string, members []keyedDocument) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteString(":{")
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(buf, m.key, m.doc); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalSnapshot rebuilds a session from MarshalSnapshot output,
// restoring insertion order from the textual member order.
func UnmarshalSnapshot(data []byte) (*domain.Session, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		name      string
		haveName  bool
		variables []keyedDocument
		factors   []keyedDocument
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &domain.DecodeError{Reason: "malformed snapshot", Err: err}
		}
		key, _ := tok.(string)
		switch key {
		case domain.KeyName:
			if err := dec.Decode(&name); err != nil {
				return nil, &domain.DecodeError{Field: domain.KeyName, Err: err}
			}
			haveName = true
		case domain.KeyVariables:
			if variables, err = decodeOrderedObject(dec, key); err != nil {
				return nil, err
			}
		case domain.KeyFactors:
			if factors, err = decodeOrderedObject(dec, key); err != nil {
				return nil, err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, &domain.DecodeError{Field: key, Err: err}
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if !haveName {
		return nil, &domain.DecodeError{Field: domain.KeyName, Reason: "snapshot has no session name"}
	}
	return buildSession(name, variables, factors)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return &domain.DecodeError{Reason: "malformed snapshot", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &domain.DecodeError{Reason: fmt.Sprintf("expected %q, got %v", want, tok)}
	}
	return nil
}

func decodeOrderedObject(dec *json.Decoder, field string) ([]keyedDocument, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, &domain.DecodeError{Field: field, Err: err}
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &domain.DecodeError{Field: field, Reason: "expected an object"}
	}
	var out []keyedDocument
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &domain.DecodeError{Field: field, Err: err}
		}
		key, _ := tok.(string)
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, &domain.DecodeError{Field: field + "." + key, Err: err}
		}
		out = append(out, keyedDocument{key: key, doc: doc})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &domain.DecodeError{Field: field, Err: err}
	}
	return out, nil
}

func buildSession(name string, variables, factors []keyedDocument) (*domain.Session, error) {
	s := domain.NewSession(name)
	for _, m := range variables {
		v, err := DecodeVariable(m.doc)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", m.key, err)
		}
		if v.Name() != m.key {
			return nil, &domain.DecodeError{
				Field:  domain.KeyVariables,
				Reason: fmt.Sprintf("variable keyed %q is labelled %q", m.key, v.Name()),
			}
		}
		if err := s.AddVariable(v); err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyVariables, Err: err}
		}
	}
	for _, m := range factors {
		f, err := DecodeFactor(m.doc)
		if err != nil {
			return nil, fmt.Errorf("factor %q: %w", m.key, err)
		}
		if f.Label() != m.key {
			f = f.WithLabel(m.key)
		}
		if err := s.AddFactor(f); err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyFactors, Err: err}
		}
	}
	return s, nil
}

// MarshalSnapshotYAML encodes the session document as YAML, keeping
// insertion order.
func MarshalSnapshotYAML(s *domain.Session) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar(domain.KeyName), scalar(s.Name()))

	vars := &yaml.Node{Kind: yaml.MappingNode}
	for _, v := range s.Variables() {
		n, err := encodeNode(v.ToDocument())
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name(), err)
		}
		vars.Content = append(vars.Content, scalar(v.Name()), n)
	}
	root.Content = append(root.Content, scalar(domain.KeyVariables), vars)

	factors := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range s.Factors() {
		n, err := encodeNode(f.ToDocument())
		if err != nil {
			return nil, fmt.Errorf("factor %q: %w", f.Label(), err)
		}
		factors.Content = append(factors.Content, scalar(f.Label()), n)
	}
	root.Content = append(root.Content, scalar(domain.KeyFactors), factors)

	return yaml.Marshal(root)
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func encodeNode(doc domain.Document) (*yaml.Node, error) {
	n := &yaml.Node{}
	if err := n.Encode(map[string]any(doc)); err != nil {
		return nil, err
	}
	return n, nil
}

// UnmarshalSnapshotYAML rebuilds a session from MarshalSnapshotYAML output.
func UnmarshalSnapshotYAML(data []byte) (*domain.Session, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.DecodeError{Reason: "malformed snapshot", Err: err}
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, &domain.DecodeError{Reason: "snapshot is not a mapping"}
	}

	var (
		name      string
		haveName  bool
		variables []keyedDocument
		factors   []keyedDocument
		err       error
	)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case domain.KeyName:
			if err := value.Decode(&name); err != nil {
				return nil, &domain.DecodeError{Field: domain.KeyName, Err: err}
			}
			haveName = true
		case domain.KeyVariables:
			if variables, err = orderedMapping(value, key); err != nil {
				return nil, err
			}
		case domain.KeyFactors:
			if factors, err = orderedMapping(value, key); err != nil {
				return nil, err
			}
		}
	}
	if !haveName {
		return nil, &domain.DecodeError{Field: domain.KeyName, Reason: "snapshot has no session name"}
	}
	return buildSession(name, variables, factors)
}

func orderedMapping(n *yaml.Node, field string) ([]keyedDocument, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, &domain.DecodeError{Field: field, Reason: "expected a mapping"}
	}
	out := make([]keyedDocument, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		var doc map[string]any
		if err := n.Content[i+1].Decode(&doc); err != nil {
			return nil, &domain.DecodeError{Field: field + "." + key, Err: err}
		}
		out = append(out, keyedDocument{key: key, doc: doc})
	}
	return out, nil
}
