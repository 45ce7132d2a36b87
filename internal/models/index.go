package models

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

// Stored precision of derived values
const (
	SubIndexPlaces  int32 = 3
	CompositePlaces int32 = 2
	RawValuePlaces  int32 = 3
)

// IndexResult is the persisted form of an ICA computation: sub-indices and
// the nutrient ratio keep 3 fractional digits, the composite keeps 2.
type IndexResult struct {
	OxygenIndex          *apd.Decimal
	SolidsIndex          *apd.Decimal
	DemandIndex          *apd.Decimal
	ConductivityIndex    *apd.Decimal
	AcidityIndex         *apd.Decimal
	NutrientRatio        *apd.Decimal
	NutrientIndex        *apd.Decimal
	VariableCount        int
	CompositeCoefficient *apd.Decimal
	QualityClass         ica.QualityClass
}

// NewIndexResult quantizes a computed set into its stored form.
func NewIndexResult(set *ica.IndexSet) (*IndexResult, error) {
	if set == nil {
		return nil, fmt.Errorf("index result: nil index set")
	}
	r := &IndexResult{
		VariableCount: set.VariableCount,
		QualityClass:  set.QualityClass,
	}
	targets := []struct {
		dst    **apd.Decimal
		src    *apd.Decimal
		places int32
	}{
		{&r.OxygenIndex, set.OxygenIndex, SubIndexPlaces},
		{&r.SolidsIndex, set.SolidsIndex, SubIndexPlaces},
		{&r.DemandIndex, set.DemandIndex, SubIndexPlaces},
		{&r.ConductivityIndex, set.ConductivityIndex, SubIndexPlaces},
		{&r.AcidityIndex, set.AcidityIndex, SubIndexPlaces},
		{&r.NutrientRatio, set.NutrientRatio, SubIndexPlaces},
		{&r.NutrientIndex, set.NutrientIndex, SubIndexPlaces},
		{&r.CompositeCoefficient, set.CompositeCoefficient, CompositePlaces},
	}
	for _, t := range targets {
		q, err := ica.Quantize(t.src, t.places)
		if err != nil {
			return nil, fmt.Errorf("index result: %w", err)
		}
		*t.dst = q
	}
	return r, nil
}

// IndexView is the JSON form of an IndexResult. Decimals are rendered as
// strings so no precision is lost on the wire.
type IndexView struct {
	OxygenIndex          string           `json:"oxygen_index"`
	SolidsIndex          string           `json:"solids_index"`
	DemandIndex          string           `json:"demand_index"`
	ConductivityIndex    string           `json:"conductivity_index"`
	AcidityIndex         string           `json:"acidity_index"`
	NutrientRatio        string           `json:"nutrient_ratio,omitempty"`
	NutrientIndex        string           `json:"nutrient_index,omitempty"`
	VariableCount        int              `json:"variable_count"`
	CompositeCoefficient string           `json:"composite_coefficient"`
	QualityClass         ica.QualityClass `json:"quality_class"`
}

// View returns the JSON form of r, or nil when r is nil.
func (r *IndexResult) View() *IndexView {
	if r == nil {
		return nil
	}
	return &IndexView{
		OxygenIndex:          ica.Format(r.OxygenIndex),
		SolidsIndex:          ica.Format(r.SolidsIndex),
		DemandIndex:          ica.Format(r.DemandIndex),
		ConductivityIndex:    ica.Format(r.ConductivityIndex),
		AcidityIndex:         ica.Format(r.AcidityIndex),
		NutrientRatio:        ica.Format(r.NutrientRatio),
		NutrientIndex:        ica.Format(r.NutrientIndex),
		VariableCount:        r.VariableCount,
		CompositeCoefficient: ica.Format(r.CompositeCoefficient),
		QualityClass:         r.QualityClass,
	}
}
