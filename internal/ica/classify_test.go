package ica

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		composite string
		want      QualityClass
	}{
		{"0", VeryPoor},
		{"0.1", VeryPoor},
		{"0.25", VeryPoor},
		{"0.2500001", Poor},
		{"0.5", Poor},
		{"0.51", Fair},
		{"0.7", Fair},
		{"0.71", Acceptable},
		{"0.9", Acceptable},
		{"0.901", Good},
		{"1.0", Good},
	}

	for _, tt := range tests {
		t.Run(tt.composite, func(t *testing.T) {
			got, err := Classify(dec(tt.composite))
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassify_OutOfRange(t *testing.T) {
	for _, composite := range []string{"1.01", "-0.01", "2"} {
		_, err := Classify(dec(composite))
		if !errors.Is(err, ErrInvalidCompositeRange) {
			t.Errorf("Expected ErrInvalidCompositeRange for %s, got %v", composite, err)
		}
	}
}

func TestQualityClass_Ordered(t *testing.T) {
	for i := 1; i < len(QualityClasses); i++ {
		if QualityClasses[i-1] >= QualityClasses[i] {
			t.Errorf("Expected %v to rank below %v", QualityClasses[i-1], QualityClasses[i])
		}
	}
}

func TestQualityClass_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]QualityClass{"class": Acceptable})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != `{"class":"ACCEPTABLE"}` {
		t.Errorf("Expected ACCEPTABLE label, got %s", data)
	}

	var decoded struct {
		Class QualityClass `json:"class"`
	}
	if err := json.Unmarshal([]byte(`{"class":"very_poor"}`), &decoded); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if decoded.Class != VeryPoor {
		t.Errorf("Expected VERY_POOR, got %v", decoded.Class)
	}

	if _, err := ParseQualityClass("EXCELLENT"); err == nil {
		t.Error("Expected error for unknown class")
	}
}
