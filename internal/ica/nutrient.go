package ica

import "github.com/cockroachdb/apd/v3"

var (
	nutrientOutside = MustDecimal("0.15")
	nutrientSteps   = []struct {
		bound     *apd.Decimal
		inclusive bool
		index     *apd.Decimal
	}{
		{MustDecimal("5"), true, nutrientOutside},
		{MustDecimal("10"), true, MustDecimal("0.35")},
		{MustDecimal("15"), false, MustDecimal("0.6")},
		{MustDecimal("20"), true, MustDecimal("0.8")},
	}
)

// NutrientPair holds the nitrogen/phosphorus ratio and its sub-index.
type NutrientPair struct {
	Ratio *apd.Decimal
	Index *apd.Decimal
}

// NutrientRatio derives the N/P ratio and its sub-index. It returns a nil
// NutrientPair, and no error, when either value is missing or phosphorus is
// zero: the pair is then simply left out of the aggregate.
func NutrientRatio(n, p *apd.Decimal) (*NutrientPair, error) {
	if n == nil || p == nil || p.IsZero() {
		return nil, nil
	}

	c := newCalculator(formulaContext)
	ratio, err := c.result("nutrient ratio", c.quo(n, p))
	if err != nil {
		return nil, err
	}
	return &NutrientPair{Ratio: ratio, Index: nutrientIndex(ratio)}, nil
}

func nutrientIndex(ratio *apd.Decimal) *apd.Decimal {
	for _, s := range nutrientSteps {
		cmp := ratio.Cmp(s.bound)
		if cmp < 0 || (cmp == 0 && s.inclusive) {
			return clone(s.index)
		}
	}
	return clone(nutrientOutside)
}
