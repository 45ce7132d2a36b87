package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

func TestSampleInput_ToRawSample(t *testing.T) {
	var in SampleInput
	body := `{"od": 80, "sst": "10.5", "dqo": 15, "ce": 500, "ph": 7.5}`
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("Expected no decode error, got %v", err)
	}

	raw, err := in.ToRawSample()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ica.Format(raw.SST) != "10.5" {
		t.Errorf("Expected sst 10.5, got %s", ica.Format(raw.SST))
	}
	if raw.N != nil || raw.P != nil {
		t.Error("Expected absent nutrient values to stay nil")
	}
}

func TestSampleInput_InvalidNumber(t *testing.T) {
	in := SampleInput{DissolvedOxygen: "80", PH: "seven"}

	_, err := in.ToRawSample()
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("Expected FieldError, got %v", err)
	}
	if fieldErr.Field != "ph" {
		t.Errorf("Expected field ph, got %s", fieldErr.Field)
	}
}

func TestFieldMonitoring_ApplyIndex(t *testing.T) {
	raw, err := SampleInput{
		DissolvedOxygen: "80", SuspendedSolids: "10", ChemicalOxygenDemand: "15",
		Conductivity: "100", PH: "7.5", Nitrogen: "30", Phosphorus: "2",
	}.ToRawSample()
	if err != nil {
		t.Fatal(err)
	}
	m := NewFieldMonitoring("ST-01", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), raw)

	set, err := ica.Compute(m)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := m.ApplyIndex(set); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"oxygen", ica.Format(m.Index.OxygenIndex), "0.800"},
		{"solids", ica.Format(m.Index.SolidsIndex), "0.990"},
		{"conductivity", ica.Format(m.Index.ConductivityIndex), "0.737"},
		{"ratio", ica.Format(m.Index.NutrientRatio), "15.000"},
		{"nutrient", ica.Format(m.Index.NutrientIndex), "0.800"},
		{"composite", ica.Format(m.Index.CompositeCoefficient), "0.87"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
	if m.Index.VariableCount != 6 {
		t.Errorf("Expected 6 variables, got %d", m.Index.VariableCount)
	}
	if m.Index.QualityClass != ica.Acceptable {
		t.Errorf("Expected ACCEPTABLE, got %s", m.Index.QualityClass)
	}
}

func TestDischargeMonitoring_SharesFormulas(t *testing.T) {
	raw := ica.RawSample{
		OD: ica.MustDecimal("80"), SST: ica.MustDecimal("10"), DQO: ica.MustDecimal("15"),
		CE: ica.MustDecimal("500"), PH: ica.MustDecimal("7.5"),
	}
	at := time.Date(2025, 11, 20, 14, 30, 0, 0, time.UTC)
	field := NewFieldMonitoring("ST-01", at, raw)
	discharge := NewDischargeMonitoring("DP-7", "PERM-2025-031", at, ica.MustDecimal("12.5"), raw)

	fieldSet, err := ica.Compute(field)
	if err != nil {
		t.Fatal(err)
	}
	dischargeSet, err := ica.Compute(discharge)
	if err != nil {
		t.Fatal(err)
	}
	if fieldSet.CompositeCoefficient.Cmp(dischargeSet.CompositeCoefficient) != 0 {
		t.Errorf("Expected identical composites, got %s and %s",
			fieldSet.CompositeCoefficient, dischargeSet.CompositeCoefficient)
	}
	if discharge.CampaignYear != 2025 {
		t.Errorf("Expected campaign year 2025, got %d", discharge.CampaignYear)
	}
}

func TestApplyIndex_NilSet(t *testing.T) {
	m := &FieldMonitoring{StationID: "ST-01"}
	if err := m.ApplyIndex(nil); err == nil {
		t.Error("Expected error for nil index set")
	}
	if m.Index != nil {
		t.Error("Expected record to stay without index")
	}
}

func TestFieldMonitoringRequest_ToRecord(t *testing.T) {
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	t.Run("missing station", func(t *testing.T) {
		_, err := FieldMonitoringRequest{}.ToRecord(now)
		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) || fieldErr.Field != "station_id" {
			t.Errorf("Expected station_id error, got %v", err)
		}
	})

	t.Run("defaults sampled at", func(t *testing.T) {
		req := FieldMonitoringRequest{StationID: " ST-02 ", SampleInput: SampleInput{DissolvedOxygen: "90"}}
		rec, err := req.ToRecord(now)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.StationID != "ST-02" {
			t.Errorf("Expected trimmed station id, got %q", rec.StationID)
		}
		if !rec.SampledAt.Equal(now) {
			t.Errorf("Expected %v, got %v", now, rec.SampledAt)
		}
	})
}

func TestDischargeMonitoringRequest_ToRecord(t *testing.T) {
	now := time.Now()
	var req DischargeMonitoringRequest
	body := `{"discharge_point_id":"DP-1","permit_number":"P-9","flow_rate":"3.25","od":70,"sst":20,"dqo":30,"ce":300,"ph":8}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}

	rec, err := req.ToRecord(now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ica.Format(rec.FlowRate) != "3.25" {
		t.Errorf("Expected flow rate 3.25, got %s", ica.Format(rec.FlowRate))
	}
	if ica.Format(rec.Parameters.ChemicalDemand) != "30" {
		t.Errorf("Expected dqo 30, got %s", ica.Format(rec.Parameters.ChemicalDemand))
	}

	req.FlowRate = "-1"
	if _, err := req.ToRecord(now); err == nil {
		t.Error("Expected error for negative flow rate")
	}
}

func TestFieldMonitoring_ViewJSON(t *testing.T) {
	raw := ica.RawSample{
		OD: ica.MustDecimal("80"), SST: ica.MustDecimal("10"), DQO: ica.MustDecimal("15"),
		CE: ica.MustDecimal("500"), PH: ica.MustDecimal("7.5"),
	}
	m := NewFieldMonitoring("ST-01", time.Now(), raw)
	set, err := ica.Compute(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ApplyIndex(set); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(m.View())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	body := string(data)
	for _, want := range []string{`"composite_coefficient":"0.74"`, `"quality_class":"ACCEPTABLE"`, `"variable_count":5`} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in %s", want, body)
		}
	}
	if strings.Contains(body, "nutrient_index") {
		t.Errorf("Expected no nutrient index in %s", body)
	}
}

func TestQualitySummary_Add(t *testing.T) {
	s := NewQualitySummary()
	s.Add(KindFieldMonitoring, ica.Good)
	s.Add(KindFieldMonitoring, ica.Good)
	s.Add(KindDischargeMonitoring, ica.VeryPoor)

	if s.FieldMonitorings["GOOD"] != 2 {
		t.Errorf("Expected 2 GOOD field records, got %d", s.FieldMonitorings["GOOD"])
	}
	if s.DischargeMonitorings["VERY_POOR"] != 1 {
		t.Errorf("Expected 1 VERY_POOR discharge, got %d", s.DischargeMonitorings["VERY_POOR"])
	}
	if s.Total != 3 {
		t.Errorf("Expected total 3, got %d", s.Total)
	}
	if _, ok := s.FieldMonitorings["FAIR"]; !ok {
		t.Error("Expected every class to be present")
	}
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	from, to, err := ParseTimeRange("", "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !to.Equal(now) || !from.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("Unexpected default range %v - %v", from, to)
	}

	if _, _, err := ParseTimeRange("2026-05-11T00:00:00Z", "2026-05-10T00:00:00Z", now); err == nil {
		t.Error("Expected error when start is after end")
	}
	if _, _, err := ParseTimeRange("yesterday", "", now); err == nil {
		t.Error("Expected error for malformed start")
	}
}
