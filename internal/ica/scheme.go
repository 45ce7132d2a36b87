package ica

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Variable identifies one of the six sub-indices.
type Variable int

const (
	Oxygen Variable = iota
	Solids
	Demand
	Conductivity
	Acidity
	Nutrient
)

// variables lists every sub-index in accumulation order.
var variables = []Variable{Oxygen, Solids, Demand, Conductivity, Acidity, Nutrient}

func (v Variable) String() string {
	switch v {
	case Oxygen:
		return "oxygen"
	case Solids:
		return "solids"
	case Demand:
		return "demand"
	case Conductivity:
		return "conductivity"
	case Acidity:
		return "acidity"
	case Nutrient:
		return "nutrient"
	default:
		return "variable(" + strconv.Itoa(int(v)) + ")"
	}
}

// Weight is the factor applied to one sub-index.
type Weight struct {
	Variable Variable
	Factor   *apd.Decimal
}

// Scheme is a weighting scheme for a given number of variables. Weights are
// listed in accumulation order.
type Scheme struct {
	VariableCount int
	Weights       []Weight
}

var (
	fiveVariableWeight = MustDecimal("0.2")
	sixVariableWeight  = MustDecimal("0.17")
	sixVariableAcidity = MustDecimal("0.15")

	schemes = map[int]Scheme{
		5: {
			VariableCount: 5,
			Weights: []Weight{
				{Oxygen, fiveVariableWeight},
				{Solids, fiveVariableWeight},
				{Demand, fiveVariableWeight},
				{Conductivity, fiveVariableWeight},
				{Acidity, fiveVariableWeight},
			},
		},
		6: {
			VariableCount: 6,
			Weights: []Weight{
				{Oxygen, sixVariableWeight},
				{Solids, sixVariableWeight},
				{Demand, sixVariableWeight},
				{Conductivity, sixVariableWeight},
				{Acidity, sixVariableAcidity},
				{Nutrient, sixVariableWeight},
			},
		},
	}
)

// Validate checks that the scheme weighs exactly VariableCount distinct
// variables and that its factors add up to 1.
func (s Scheme) Validate() error {
	if len(s.Weights) != s.VariableCount {
		return fmt.Errorf("ica: scheme for %d variables has %d weights", s.VariableCount, len(s.Weights))
	}

	seen := make(map[Variable]bool, len(s.Weights))
	c := newCalculator(formulaContext)
	total := clone(zero)
	for _, w := range s.Weights {
		if seen[w.Variable] {
			return fmt.Errorf("ica: scheme for %d variables weighs %s twice", s.VariableCount, w.Variable)
		}
		seen[w.Variable] = true
		total = c.add(total, w.Factor)
	}
	if c.err != nil {
		return fmt.Errorf("ica: summing scheme weights: %w", c.err)
	}
	if total.Cmp(one) != 0 {
		return fmt.Errorf("ica: scheme for %d variables sums to %s, want 1", s.VariableCount, Format(total))
	}
	return nil
}

// CountVariables counts the sub-indices present in set.
func CountVariables(set *IndexSet) int {
	count := 0
	for _, v := range variables {
		if set.SubIndex(v) != nil {
			count++
		}
	}
	return count
}

// SelectScheme returns the validated weighting scheme for count variables.
// Only 5 and 6 are supported.
func SelectScheme(count int) (Scheme, error) {
	s, ok := schemes[count]
	if !ok {
		return Scheme{}, &Error{Kind: ErrInvalidVariableCount, Field: "variable_count", Value: strconv.Itoa(count)}
	}
	if err := s.Validate(); err != nil {
		return Scheme{}, err
	}
	return s, nil
}

// Aggregate computes the weighted composite coefficient of set under s.
// Every product and every partial sum is rounded to 3 significant digits.
func Aggregate(s Scheme, set *IndexSet) (*apd.Decimal, error) {
	c := newCalculator(aggregateContext)
	total := clone(zero)
	for _, w := range s.Weights {
		value := set.SubIndex(w.Variable)
		if value == nil {
			return nil, &Error{Kind: ErrInvalidVariableCount, Field: w.Variable.String(), Value: "absent"}
		}
		total = c.add(total, c.mul(w.Factor, value))
	}
	return c.result("composite coefficient", total)
}
