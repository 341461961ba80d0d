package codec

import (
	"fmt"
	"reflect"

	"github.com/aretw0/graff/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

type gaussianDTO struct {
	Mean []float64 `mapstructure:"mean"`
	Cov  any       `mapstructure:"cov"`
}

type sampleWeightsDTO struct {
	Samples  []float64 `mapstructure:"samples"`
	Weights  []float64 `mapstructure:"weights"`
	Quantile float64   `mapstructure:"quantile"`
}

type variableDTO struct {
	Label        string `mapstructure:"label"`
	VariableType string `mapstructure:"variableType"`
}

type factorDTO struct {
	FactorType  string   `mapstructure:"factorType"`
	Variables   []string `mapstructure:"variables"`
	Measurement any      `mapstructure:"measurement"`
}

type robotDTO struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// weakDecode decodes loosely typed documents (JSON float64s, YAML ints,
// scalars where a list is expected) into a DTO.
func weakDecode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func requireKeys(element string, doc domain.Document, keys ...string) error {
	for _, k := range keys {
		if _, ok := doc[k]; !ok {
			return &domain.DecodeError{Field: k, Reason: fmt.Sprintf("%s document has no %q", element, k)}
		}
	}
	return nil
}

// DecodeDistribution rebuilds a distribution from its document.
func DecodeDistribution(doc domain.Document) (domain.Distribution, error) {
	distType, ok := doc[domain.KeyDistType].(string)
	if !ok {
		return nil, &domain.DecodeError{Field: domain.KeyDistType, Reason: "missing distribution discriminator"}
	}

	switch distType {
	case domain.DistNormal, domain.DistMvNormal:
		if err := requireKeys(distType, doc, domain.KeyMean, domain.KeyCov); err != nil {
			return nil, err
		}
		var dto gaussianDTO
		if err := weakDecode(doc, &dto); err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyMean, Reason: "malformed " + distType, Err: err}
		}
		cov, err := decodeCov(distType, dto.Cov)
		if err != nil {
			return nil, err
		}
		var d domain.Distribution
		if distType == domain.DistNormal {
			d, err = domain.NewNormalVector(dto.Mean, cov)
		} else {
			d, err = domain.NewMvNormal(dto.Mean, cov)
		}
		if err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyCov, Reason: "invalid " + distType, Err: err}
		}
		return d, nil

	case domain.DistSampleWeights:
		if err := requireKeys(distType, doc, domain.KeySamples, domain.KeyWeights); err != nil {
			return nil, err
		}
		var dto sampleWeightsDTO
		if err := weakDecode(doc, &dto); err != nil {
			return nil, &domain.DecodeError{Field: domain.KeySamples, Reason: "malformed " + distType, Err: err}
		}
		d, err := domain.NewSampleWeights(dto.Samples, dto.Weights, dto.Quantile)
		if err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyWeights, Reason: "invalid " + distType, Err: err}
		}
		return d, nil
	}
	return nil, &domain.DecodeError{Field: domain.KeyDistType, Reason: fmt.Sprintf("unknown distribution %q", distType)}
}

// decodeCov accepts the flattened form and the nested-rows form.
func decodeCov(distType string, raw any) ([]float64, error) {
	if isNested(raw) {
		var rows [][]float64
		if err := weakDecode(raw, &rows); err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyCov, Reason: "malformed covariance rows", Err: err}
		}
		flat, err := domain.FlattenRows(distType, rows)
		if err != nil {
			return nil, &domain.DecodeError{Field: domain.KeyCov, Reason: "covariance rows are not square", Err: err}
		}
		return flat, nil
	}
	var flat []float64
	if err := weakDecode(raw, &flat); err != nil {
		return nil, &domain.DecodeError{Field: domain.KeyCov, Reason: "malformed covariance", Err: err}
	}
	return flat, nil
}

func isNested(raw any) bool {
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return false
	}
	return reflect.ValueOf(v.Index(0).Interface()).Kind() == reflect.Slice
}

// DecodeVariable rebuilds a variable from {label, variableType}.
func DecodeVariable(doc domain.Document) (domain.Variable, error) {
	if err := requireKeys("Variable", doc, domain.KeyLabel, domain.KeyVariableType); err != nil {
		return domain.Variable{}, err
	}
	var dto variableDTO
	if err := weakDecode(doc, &dto); err != nil {
		return domain.Variable{}, &domain.DecodeError{Reason: "malformed variable", Err: err}
	}
	v, err := domain.NewVariable(dto.Label, dto.VariableType)
	if err != nil {
		return domain.Variable{}, &domain.DecodeError{Field: domain.KeyLabel, Reason: "invalid variable", Err: err}
	}
	return v, nil
}

// DecodeFactor rebuilds a factor. A lone measurement document is read as a
// one-element sequence.
func DecodeFactor(doc domain.Document) (domain.Factor, error) {
	if err := requireKeys("Factor", doc, domain.KeyFactorType, domain.KeyVariables); err != nil {
		return domain.Factor{}, err
	}
	var dto factorDTO
	if err := weakDecode(doc, &dto); err != nil {
		return domain.Factor{}, &domain.DecodeError{Reason: "malformed factor", Err: err}
	}

	items, err := measurementDocuments(dto.Measurement)
	if err != nil {
		return domain.Factor{}, err
	}
	dists := make([]domain.Distribution, 0, len(items))
	for i, item := range items {
		d, err := DecodeDistribution(item)
		if err != nil {
			return domain.Factor{}, fmt.Errorf("measurement %d: %w", i, err)
		}
		dists = append(dists, d)
	}

	f, err := domain.NewFactor(dto.FactorType, dto.Variables, dists...)
	if err != nil {
		return domain.Factor{}, &domain.DecodeError{Field: domain.KeyVariables, Reason: "invalid factor", Err: err}
	}
	return f, nil
}

func measurementDocuments(raw any) ([]domain.Document, error) {
	if raw == nil {
		return nil, nil
	}
	if doc, ok := asDocument(raw); ok {
		return []domain.Document{doc}, nil
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice {
		return nil, &domain.DecodeError{Field: domain.KeyMeasurement, Reason: fmt.Sprintf("unexpected %T", raw)}
	}
	out := make([]domain.Document, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		doc, ok := asDocument(v.Index(i).Interface())
		if !ok {
			return nil, &domain.DecodeError{
				Field:  domain.KeyMeasurement,
				Reason: fmt.Sprintf("item %d is %T, not a distribution document", i, v.Index(i).Interface()),
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// DecodeRobot rebuilds a robot from {name, description?}.
func DecodeRobot(doc domain.Document) (domain.Robot, error) {
	if err := requireKeys(domain.TypeRobot, doc, domain.KeyName); err != nil {
		return domain.Robot{}, err
	}
	var dto robotDTO
	if err := weakDecode(doc, &dto); err != nil {
		return domain.Robot{}, &domain.DecodeError{Reason: "malformed robot", Err: err}
	}
	r, err := domain.NewRobot(dto.Name, dto.Description)
	if err != nil {
		return domain.Robot{}, &domain.DecodeError{Field: domain.KeyName, Reason: "invalid robot", Err: err}
	}
	return r, nil
}
