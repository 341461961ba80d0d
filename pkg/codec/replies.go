package codec

import (
	"github.com/aretw0/graff/pkg/domain"
)

// Listing is the reply shape of ls and varQuery. Absent keys decode as empty.
type Listing struct {
	Variables []string `json:"variables" mapstructure:"variables"`
	Factors   []string `json:"factors" mapstructure:"factors"`
}

// Document renders the listing as reply fields.
func (l Listing) Document() domain.Document {
	return domain.Document{
		domain.KeyVariables: nonNil(l.Variables),
		domain.KeyFactors:   nonNil(l.Factors),
	}
}

// DecodeListing reads a listing out of an ls or varQuery reply.
func DecodeListing(r Reply) (Listing, error) {
	var l Listing
	if err := weakDecode(r.Document(), &l); err != nil {
		return Listing{}, &domain.DecodeError{Reason: "malformed listing", Err: err}
	}
	l.Variables = nonNil(l.Variables)
	l.Factors = nonNil(l.Factors)
	return l, nil
}

// DecodeKDE reads the belief distribution out of a GetVarMAPKDE reply.
func DecodeKDE(r Reply) (domain.Distribution, error) {
	raw, ok := r.Get(KeyEstimate)
	if !ok {
		return nil, &domain.DecodeError{Field: KeyEstimate, Reason: "reply carries no estimate"}
	}
	doc, ok := asDocument(raw)
	if !ok {
		return nil, &domain.DecodeError{Field: KeyEstimate, Reason: "estimate is not a distribution document"}
	}
	return DecodeDistribution(doc)
}

// DecodePoint reads the point estimate out of a GetVarMAPMax or GetVarMAPMean reply.
func DecodePoint(r Reply) ([]float64, error) {
	raw, ok := r.Get(KeyEstimate)
	if !ok {
		return nil, &domain.DecodeError{Field: KeyEstimate, Reason: "reply carries no estimate"}
	}
	var point []float64
	if err := weakDecode(raw, &point); err != nil {
		return nil, &domain.DecodeError{Field: KeyEstimate, Reason: "estimate is not numeric", Err: err}
	}
	return nonNilFloats(point), nil
}

// Status is the backend summary returned by getStatus.
type Status struct {
	Robots    int  `json:"robots" mapstructure:"robots"`
	Sessions  int  `json:"sessions" mapstructure:"sessions"`
	Variables int  `json:"variables" mapstructure:"variables"`
	Factors   int  `json:"factors" mapstructure:"factors"`
	Solves    int  `json:"solves" mapstructure:"solves"`
	Mock      bool `json:"mock" mapstructure:"mock"`
}

// Document renders the status as reply fields.
func (s Status) Document() domain.Document {
	return domain.Document{
		"robots":    s.Robots,
		"sessions":  s.Sessions,
		"variables": s.Variables,
		"factors":   s.Factors,
		"solves":    s.Solves,
		"mock":      s.Mock,
	}
}

// DecodeStatus reads a getStatus reply. Unknown fields are ignored.
func DecodeStatus(r Reply) (Status, error) {
	var s Status
	if err := weakDecode(r.Document(), &s); err != nil {
		return Status{}, &domain.DecodeError{Reason: "malformed status", Err: err}
	}
	return s, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilFloats(in []float64) []float64 {
	if in == nil {
		return []float64{}
	}
	return in
}
