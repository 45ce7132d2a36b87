package ica

import (
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
)

func dec(s string) *apd.Decimal {
	return MustDecimal(s)
}

func assertDecimal(t *testing.T, name string, got *apd.Decimal, want string) {
	t.Helper()
	if got == nil {
		t.Fatalf("Expected %s to be %s, got nil", name, want)
	}
	if got.Cmp(dec(want)) != 0 {
		t.Errorf("Expected %s to be %s, got %s", name, want, Format(got))
	}
}

func assertBetween(t *testing.T, name string, got *apd.Decimal, low, high string) {
	t.Helper()
	if got == nil {
		t.Fatalf("Expected %s in (%s, %s), got nil", name, low, high)
	}
	if got.Cmp(dec(low)) <= 0 || got.Cmp(dec(high)) >= 0 {
		t.Errorf("Expected %s in (%s, %s), got %s", name, low, high, Format(got))
	}
}

func TestOxygenIndex(t *testing.T) {
	tests := []struct {
		name string
		od   string
		want string
	}{
		{"Zero saturation", "0", "0"},
		{"Undersaturated", "80", "0.8"},
		{"Just below saturation", "99.5", "0.995"},
		{"Saturation from below branch", "100", "1"},
		{"Just above saturation", "100.5", "0.995"},
		{"Supersaturated", "150", "0.5"},
		{"Strongly supersaturated goes negative", "250", "-0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OxygenIndex(dec(tt.od))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertDecimal(t, "oxygen index", got, tt.want)
		})
	}
}

func TestOxygenIndex_ContinuousAtSaturation(t *testing.T) {
	below, _ := OxygenIndex(dec("99.999"))
	at, _ := OxygenIndex(dec("100"))
	above, _ := OxygenIndex(dec("100.001"))

	assertDecimal(t, "oxygen index at 100", at, "1")
	if below.Cmp(above) != 0 {
		t.Errorf("Expected symmetric values around 100, got %s and %s", Format(below), Format(above))
	}
}

func TestSolidsIndex(t *testing.T) {
	tests := []struct {
		name string
		sst  string
		want string
	}{
		{"Clear water", "0", "1"},
		{"Lower breakpoint", "4.5", "1"},
		{"Linear segment", "10", "0.99"},
		{"Linear segment midrange", "100", "0.72"},
		{"Upper breakpoint", "320", "0"},
		{"Beyond upper breakpoint", "500", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolidsIndex(dec(tt.sst))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertDecimal(t, "solids index", got, tt.want)
		})
	}
}

func TestDemandIndex(t *testing.T) {
	tests := []struct {
		dqo  string
		want string
	}{
		{"5", "0.91"},
		{"20", "0.91"},
		{"20.001", "0.71"},
		{"25", "0.71"},
		{"30", "0.51"},
		{"40", "0.51"},
		{"41", "0.26"},
		{"80", "0.26"},
		{"80.0001", "0.125"},
		{"81", "0.125"},
		{"1000", "0.125"},
	}

	for _, tt := range tests {
		t.Run("dqo="+tt.dqo, func(t *testing.T) {
			got, err := DemandIndex(dec(tt.dqo))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertDecimal(t, "demand index", got, tt.want)
		})
	}
}

func TestDemandIndex_DoesNotShareConstants(t *testing.T) {
	first, _ := DemandIndex(dec("10"))
	first.Set(dec("42"))

	second, _ := DemandIndex(dec("10"))
	assertDecimal(t, "demand index", second, "0.91")
}

func TestConductivityIndex_InvalidDomain(t *testing.T) {
	for _, ce := range []string{"0", "-5", "-0.001"} {
		t.Run("ce="+ce, func(t *testing.T) {
			got, err := ConductivityIndex(dec(ce))
			if !errors.Is(err, ErrInvalidDomainValue) {
				t.Fatalf("Expected ErrInvalidDomainValue, got %v", err)
			}
			if got != nil {
				t.Errorf("Expected nil index on error, got %s", Format(got))
			}

			var computeErr *Error
			if !errors.As(err, &computeErr) || computeErr.Field != "conductivity" {
				t.Errorf("Expected error on field conductivity, got %v", err)
			}
		})
	}
}

func TestConductivityIndex_OutOfRangeMagnitude(t *testing.T) {
	for _, ce := range []string{"1e90000", "5e99000"} {
		t.Run("ce="+ce, func(t *testing.T) {
			got, err := ConductivityIndex(dec(ce))
			if !errors.Is(err, ErrInvalidDomainValue) {
				t.Fatalf("Expected ErrInvalidDomainValue, got %v", err)
			}
			if got != nil {
				t.Errorf("Expected nil index on error, got %s", got.String())
			}
			if KindName(err) != "invalid_domain_value" {
				t.Errorf("Expected kind invalid_domain_value, got %s", KindName(err))
			}
			if !IsComputeError(err) {
				t.Error("Expected a typed compute error")
			}
		})
	}
}

func TestConductivityIndex(t *testing.T) {
	tests := []struct {
		name string
		ce   string
		low  string
		high string
	}{
		{"Very low conductivity", "1", "0.99945", "0.99946"},
		{"Low conductivity", "50", "0.896", "0.8962"},
		{"Moderate conductivity", "100", "0.7369", "0.737"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConductivityIndex(dec(tt.ce))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertBetween(t, "conductivity index", got, tt.low, tt.high)
		})
	}
}

func TestConductivityIndex_ClampsAtZero(t *testing.T) {
	for _, ce := range []string{"500", "1000", "25000"} {
		got, err := ConductivityIndex(dec(ce))
		if err != nil {
			t.Fatalf("Expected no error for ce=%s, got %v", ce, err)
		}
		assertDecimal(t, "conductivity index", got, "0")
	}
}

func TestAcidityIndex(t *testing.T) {
	tests := []struct {
		ph   string
		want string
	}{
		{"2", "0.1"},
		{"3", "0.1"},
		{"3.99", "0.1"},
		{"7", "1"},
		{"7.5", "1"},
		{"8", "1"},
		{"11.01", "0.1"},
		{"12", "0.1"},
	}

	for _, tt := range tests {
		t.Run("ph="+tt.ph, func(t *testing.T) {
			got, err := AcidityIndex(dec(tt.ph))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertDecimal(t, "acidity index", got, tt.want)
		})
	}
}

func TestAcidityIndex_ExponentialSegments(t *testing.T) {
	tests := []struct {
		name string
		ph   string
		low  string
		high string
	}{
		{"Rising segment start", "4", "0.21", "0.211"},
		{"Falling segment", "9", "0.595", "0.596"},
		{"Falling segment end", "11", "0.21", "0.212"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AcidityIndex(dec(tt.ph))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertBetween(t, "acidity index", got, tt.low, tt.high)
		})
	}
}
