package ica

import "github.com/cockroachdb/apd/v3"

var (
	oxygenScale      = MustDecimal("0.01")
	oxygenSaturation = MustDecimal("100")

	solidsLower     = MustDecimal("4.5")
	solidsUpper     = MustDecimal("320")
	solidsIntercept = MustDecimal("1.02")
	solidsSlope     = MustDecimal("0.003")

	conductivityIntercept = MustDecimal("-3.26")
	conductivitySlope     = MustDecimal("1.34")

	acidityTail        = MustDecimal("0.1")
	acidityLow         = MustDecimal("4")
	acidityPlateauLow  = MustDecimal("7")
	acidityPlateauHigh = MustDecimal("8")
	acidityHigh        = MustDecimal("11")
	acidityCoefficient = MustDecimal("0.02628419")
	acidityRise        = MustDecimal("0.520025")
	acidityDecay       = MustDecimal("-0.5187742")
)

// step maps every value up to and including upper to index.
type step struct {
	upper *apd.Decimal
	index *apd.Decimal
}

// Chemical oxygen demand is a stepped function. The steps are deliberately
// discontinuous.
var (
	demandSteps = []step{
		{MustDecimal("20"), MustDecimal("0.91")},
		{MustDecimal("25"), MustDecimal("0.71")},
		{MustDecimal("40"), MustDecimal("0.51")},
		{MustDecimal("80"), MustDecimal("0.26")},
	}
	demandTail = MustDecimal("0.125")
)

// OxygenIndex maps dissolved oxygen (percent saturation) to its sub-index.
// Supersaturation above 100% is penalised symmetrically.
func OxygenIndex(od *apd.Decimal) (*apd.Decimal, error) {
	c := newCalculator(formulaContext)
	x := c.mul(oxygenScale, od)

	var idx *apd.Decimal
	if od.Cmp(oxygenSaturation) > 0 {
		idx = c.sub(one, c.sub(x, one))
	} else {
		idx = c.sub(one, c.sub(one, x))
	}
	return c.result("oxygen index", idx)
}

// SolidsIndex maps total suspended solids to its sub-index.
func SolidsIndex(sst *apd.Decimal) (*apd.Decimal, error) {
	switch {
	case sst.Cmp(solidsLower) <= 0:
		return clone(one), nil
	case sst.Cmp(solidsUpper) >= 0:
		return clone(zero), nil
	}

	c := newCalculator(formulaContext)
	idx := c.sub(solidsIntercept, c.mul(solidsSlope, sst))
	return c.result("solids index", idx)
}

// DemandIndex maps chemical oxygen demand to its stepped sub-index.
func DemandIndex(dqo *apd.Decimal) (*apd.Decimal, error) {
	for _, s := range demandSteps {
		if dqo.Cmp(s.upper) <= 0 {
			return clone(s.index), nil
		}
	}
	return clone(demandTail), nil
}

// ConductivityIndex maps electrical conductivity to its sub-index:
// max(0, 1 - 10^(-3.26 + 1.34*log10(ce))). Conductivity must be positive.
// Only the lower bound is clamped. Values too extreme for the formula context
// are rejected as ErrInvalidDomainValue.
func ConductivityIndex(ce *apd.Decimal) (*apd.Decimal, error) {
	if ce.Sign() <= 0 {
		return nil, &Error{Kind: ErrInvalidDomainValue, Field: "conductivity", Value: Format(ce)}
	}

	c := newCalculator(formulaContext)
	exponent := c.add(conductivityIntercept, c.mul(conductivitySlope, c.log10(ce)))
	idx := c.sub(one, c.pow(ten, exponent))
	if c.err != nil {
		// Magnitudes that overflow the formula context are not measurable conductivities.
		return nil, &Error{Kind: ErrInvalidDomainValue, Field: "conductivity", Value: ce.String()}
	}
	if idx.Sign() < 0 {
		idx = clone(zero)
	}
	return idx, nil
}

// AcidityIndex maps pH to its sub-index. The neutral plateau [7, 8] scores 1;
// both tails outside [4, 11] score 0.1.
func AcidityIndex(ph *apd.Decimal) (*apd.Decimal, error) {
	c := newCalculator(formulaContext)

	var idx *apd.Decimal
	switch {
	case ph.Cmp(acidityLow) < 0:
		idx = clone(acidityTail)
	case ph.Cmp(acidityPlateauLow) < 0:
		idx = c.mul(acidityCoefficient, c.exp(c.mul(acidityRise, ph)))
	case ph.Cmp(acidityPlateauHigh) <= 0:
		idx = clone(one)
	case ph.Cmp(acidityHigh) <= 0:
		idx = c.exp(c.mul(acidityDecay, c.sub(ph, acidityPlateauHigh)))
	default:
		idx = clone(acidityTail)
	}
	return c.result("acidity index", idx)
}
