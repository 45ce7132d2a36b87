// Package ica computes the Water Quality Index (ICA) of a monitoring sample.
//
// Five required measurements (dissolved oxygen, suspended solids, chemical
// oxygen demand, conductivity and pH) and an optional nitrogen/phosphorus
// pair are mapped to normalized sub-indices, weighted under a 5- or
// 6-variable scheme and classified. The package is pure: it performs no I/O
// and keeps no mutable state, so Compute may be called concurrently.
package ica

import "github.com/cockroachdb/apd/v3"

// Source exposes the raw measurements of a sample. A nil value means the
// measurement is absent. Any record type that stores samples can implement
// it and be passed to Compute.
type Source interface {
	DissolvedOxygen() *apd.Decimal
	SuspendedSolids() *apd.Decimal
	ChemicalOxygenDemand() *apd.Decimal
	Conductivity() *apd.Decimal
	Acidity() *apd.Decimal
	Nitrogen() *apd.Decimal
	Phosphorus() *apd.Decimal
}

// RawSample is a plain Source.
type RawSample struct {
	OD  *apd.Decimal // dissolved oxygen, % saturation
	SST *apd.Decimal // total suspended solids, mg/L
	DQO *apd.Decimal // chemical oxygen demand, mg/L
	CE  *apd.Decimal // conductivity, µS/cm
	PH  *apd.Decimal
	N   *apd.Decimal // total nitrogen, optional
	P   *apd.Decimal // total phosphorus, optional
}

func (s RawSample) DissolvedOxygen() *apd.Decimal      { return s.OD }
func (s RawSample) SuspendedSolids() *apd.Decimal      { return s.SST }
func (s RawSample) ChemicalOxygenDemand() *apd.Decimal { return s.DQO }
func (s RawSample) Conductivity() *apd.Decimal         { return s.CE }
func (s RawSample) Acidity() *apd.Decimal              { return s.PH }
func (s RawSample) Nitrogen() *apd.Decimal             { return s.N }
func (s RawSample) Phosphorus() *apd.Decimal           { return s.P }

// IndexSet is the result of one computation. NutrientRatio and NutrientIndex
// are both set or both nil. It is never modified after Compute returns it.
type IndexSet struct {
	OxygenIndex       *apd.Decimal
	SolidsIndex       *apd.Decimal
	DemandIndex       *apd.Decimal
	ConductivityIndex *apd.Decimal
	AcidityIndex      *apd.Decimal
	NutrientRatio     *apd.Decimal
	NutrientIndex     *apd.Decimal

	VariableCount        int
	CompositeCoefficient *apd.Decimal
	QualityClass         QualityClass
}

// SubIndex returns the sub-index for v, or nil when it is absent.
func (s *IndexSet) SubIndex(v Variable) *apd.Decimal {
	switch v {
	case Oxygen:
		return s.OxygenIndex
	case Solids:
		return s.SolidsIndex
	case Demand:
		return s.DemandIndex
	case Conductivity:
		return s.ConductivityIndex
	case Acidity:
		return s.AcidityIndex
	case Nutrient:
		return s.NutrientIndex
	}
	return nil
}

// HasNutrient reports whether the nutrient pair contributed to the index.
func (s *IndexSet) HasNutrient() bool {
	return s.NutrientIndex != nil
}

// Compute derives the full index set of src. It returns either a complete
// result or an error wrapping one of the Err* kinds, never a partial result.
func Compute(src Source) (*IndexSet, error) {
	od, sst, dqo, ce, ph := src.DissolvedOxygen(), src.SuspendedSolids(),
		src.ChemicalOxygenDemand(), src.Conductivity(), src.Acidity()

	required := []struct {
		field string
		value *apd.Decimal
	}{
		{"dissolved_oxygen", od},
		{"suspended_solids", sst},
		{"chemical_oxygen_demand", dqo},
		{"conductivity", ce},
		{"ph", ph},
	}
	for _, r := range required {
		if r.value == nil {
			return nil, &Error{Kind: ErrMissingRequiredInput, Field: r.field}
		}
	}

	set := &IndexSet{}
	var err error
	if set.OxygenIndex, err = OxygenIndex(od); err != nil {
		return nil, err
	}
	if set.SolidsIndex, err = SolidsIndex(sst); err != nil {
		return nil, err
	}
	if set.DemandIndex, err = DemandIndex(dqo); err != nil {
		return nil, err
	}
	if set.ConductivityIndex, err = ConductivityIndex(ce); err != nil {
		return nil, err
	}
	if set.AcidityIndex, err = AcidityIndex(ph); err != nil {
		return nil, err
	}

	nutrient, err := NutrientRatio(src.Nitrogen(), src.Phosphorus())
	if err != nil {
		return nil, err
	}
	if nutrient != nil {
		set.NutrientRatio, set.NutrientIndex = nutrient.Ratio, nutrient.Index
	}

	scheme, err := SelectScheme(CountVariables(set))
	if err != nil {
		return nil, err
	}
	composite, err := Aggregate(scheme, set)
	if err != nil {
		return nil, err
	}
	class, err := Classify(composite)
	if err != nil {
		return nil, err
	}

	set.VariableCount = scheme.VariableCount
	set.CompositeCoefficient = composite
	set.QualityClass = class
	return set, nil
}
