package ica

import "testing"

func TestQuantize(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		places int32
		want   string
	}{
		{"Sub-index", "0.73694", 3, "0.737"},
		{"Composite half-up", "0.745", 2, "0.75"},
		{"Ratio beyond storage precision", "1E+18", 3, "1000000000000000000.000"},
		{"Large raw value with fraction", "123456789012345678.98765", 3, "123456789012345678.988"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Quantize(dec(tt.value), tt.places)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if Format(got) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, Format(got))
			}
		})
	}
}

func TestQuantize_Absent(t *testing.T) {
	got, err := Quantize(nil, 3)
	if err != nil || got != nil {
		t.Errorf("Expected nil result and no error, got %v, %v", got, err)
	}
}

func TestCompute_LargeNutrientRatio(t *testing.T) {
	set, err := Compute(RawSample{
		OD: dec("80"), SST: dec("10"), DQO: dec("15"), CE: dec("100"), PH: dec("7.5"),
		N: dec("1e9"), P: dec("1e-9"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertDecimal(t, "nutrient ratio", set.NutrientRatio, "1e18")
	assertDecimal(t, "nutrient index", set.NutrientIndex, "0.15")

	q, err := Quantize(set.NutrientRatio, 3)
	if err != nil {
		t.Fatalf("Expected ratio to quantize, got %v", err)
	}
	if Format(q) != "1000000000000000000.000" {
		t.Errorf("Expected 1000000000000000000.000, got %s", Format(q))
	}
}
