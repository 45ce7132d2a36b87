package ica

import (
	"errors"
	"testing"
)

func TestSelectScheme(t *testing.T) {
	for _, count := range []int{5, 6} {
		s, err := SelectScheme(count)
		if err != nil {
			t.Fatalf("Expected scheme for %d variables, got error %v", count, err)
		}
		if s.VariableCount != count {
			t.Errorf("Expected variable count %d, got %d", count, s.VariableCount)
		}
		if len(s.Weights) != count {
			t.Errorf("Expected %d weights, got %d", count, len(s.Weights))
		}
	}
}

func TestSelectScheme_InvalidCount(t *testing.T) {
	for _, count := range []int{0, 4, 7} {
		_, err := SelectScheme(count)
		if !errors.Is(err, ErrInvalidVariableCount) {
			t.Errorf("Expected ErrInvalidVariableCount for %d, got %v", count, err)
		}
	}
}

func TestSixVariableScheme_Weights(t *testing.T) {
	s, _ := SelectScheme(6)
	for _, w := range s.Weights {
		want := "0.17"
		if w.Variable == Acidity {
			want = "0.15"
		}
		assertDecimal(t, w.Variable.String()+" weight", w.Factor, want)
	}
}

func TestScheme_Validate(t *testing.T) {
	tests := []struct {
		name   string
		scheme Scheme
	}{
		{
			name: "Weight count differs from variable count",
			scheme: Scheme{VariableCount: 3, Weights: []Weight{
				{Oxygen, dec("0.5")},
				{Solids, dec("0.5")},
			}},
		},
		{
			name: "Weights do not sum to one",
			scheme: Scheme{VariableCount: 2, Weights: []Weight{
				{Oxygen, dec("0.5")},
				{Solids, dec("0.4")},
			}},
		},
		{
			name: "Variable weighted twice",
			scheme: Scheme{VariableCount: 2, Weights: []Weight{
				{Oxygen, dec("0.5")},
				{Oxygen, dec("0.5")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.scheme.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestCountVariables(t *testing.T) {
	set := &IndexSet{
		OxygenIndex:       dec("0.8"),
		SolidsIndex:       dec("0.99"),
		DemandIndex:       dec("0.91"),
		ConductivityIndex: dec("0"),
		AcidityIndex:      dec("1"),
	}
	if got := CountVariables(set); got != 5 {
		t.Errorf("Expected 5 variables, got %d", got)
	}

	set.NutrientIndex = dec("0.8")
	if got := CountVariables(set); got != 6 {
		t.Errorf("Expected 6 variables, got %d", got)
	}

	set.DemandIndex = nil
	set.NutrientIndex = nil
	if got := CountVariables(set); got != 4 {
		t.Errorf("Expected 4 variables, got %d", got)
	}
}

func TestAggregate_SixVariables(t *testing.T) {
	set := &IndexSet{
		OxygenIndex:       dec("0.8"),
		SolidsIndex:       dec("0.99"),
		DemandIndex:       dec("0.91"),
		ConductivityIndex: dec("0.73697320081"),
		AcidityIndex:      dec("1"),
		NutrientIndex:     dec("0.8"),
	}
	s, _ := SelectScheme(6)

	// 0.136 + 0.168 + 0.155 + 0.125 + 0.15 + 0.136
	got, err := Aggregate(s, set)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertDecimal(t, "composite", got, "0.870")
}

func TestAggregate_RoundsEveryStep(t *testing.T) {
	v := dec("0.12345")
	set := &IndexSet{OxygenIndex: v, SolidsIndex: v, DemandIndex: v, ConductivityIndex: v, AcidityIndex: v}
	s, _ := SelectScheme(5)

	// Each product rounds to 0.0247; the running sum reaches 0.1235 and
	// rounds up to 0.124, where an unrounded sum would give 0.123.
	got, err := Aggregate(s, set)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertDecimal(t, "composite", got, "0.124")
}

func TestAggregate_MissingWeightedVariable(t *testing.T) {
	set := &IndexSet{
		OxygenIndex:       dec("0.8"),
		SolidsIndex:       dec("0.99"),
		DemandIndex:       dec("0.91"),
		ConductivityIndex: dec("0"),
		AcidityIndex:      dec("1"),
	}
	s, _ := SelectScheme(6)

	if _, err := Aggregate(s, set); !errors.Is(err, ErrInvalidVariableCount) {
		t.Errorf("Expected ErrInvalidVariableCount, got %v", err)
	}
}
