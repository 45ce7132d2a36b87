package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

// FieldMonitoringRequest is the body accepted for a new field monitoring
type FieldMonitoringRequest struct {
	StationID string     `json:"station_id"`
	SampledAt *time.Time `json:"sampled_at,omitempty"`
	SampleInput
}

// ToRecord builds the record, stamping now when no sampling time was sent.
func (r FieldMonitoringRequest) ToRecord(now time.Time) (*FieldMonitoring, error) {
	stationID := strings.TrimSpace(r.StationID)
	if stationID == "" {
		return nil, &FieldError{Field: "station_id", Message: "is required"}
	}
	raw, err := r.SampleInput.ToRawSample()
	if err != nil {
		return nil, err
	}
	return NewFieldMonitoring(stationID, sampledAt(r.SampledAt, now), raw), nil
}

// DischargeMonitoringRequest is the body accepted for a new discharge monitoring
type DischargeMonitoringRequest struct {
	DischargePointID string      `json:"discharge_point_id"`
	PermitNumber     string      `json:"permit_number,omitempty"`
	SampledAt        *time.Time  `json:"sampled_at,omitempty"`
	FlowRate         json.Number `json:"flow_rate,omitempty"`
	SampleInput
}

// ToRecord builds the record, stamping now when no sampling time was sent.
func (r DischargeMonitoringRequest) ToRecord(now time.Time) (*DischargeMonitoring, error) {
	pointID := strings.TrimSpace(r.DischargePointID)
	if pointID == "" {
		return nil, &FieldError{Field: "discharge_point_id", Message: "is required"}
	}
	raw, err := r.SampleInput.ToRawSample()
	if err != nil {
		return nil, err
	}
	rec := NewDischargeMonitoring(pointID, strings.TrimSpace(r.PermitNumber), sampledAt(r.SampledAt, now), nil, raw)
	if r.FlowRate != "" {
		flow, err := ica.ParseDecimal(string(r.FlowRate))
		if err != nil {
			return nil, &FieldError{Field: "flow_rate", Value: string(r.FlowRate), Message: "not a finite decimal"}
		}
		if flow.Negative && !flow.IsZero() {
			return nil, &FieldError{Field: "flow_rate", Value: string(r.FlowRate), Message: "must not be negative"}
		}
		rec.FlowRate = flow
	}
	return rec, nil
}

func sampledAt(t *time.Time, now time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now.UTC()
	}
	return t.UTC()
}

// ParseTimeRange parses optional RFC3339 start/end bounds. Missing bounds
// default to the last 24 hours ending at now.
func ParseTimeRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	to := now.UTC()
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
		}
		to = t.UTC()
	}
	from := to.Add(-24 * time.Hour)
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
		}
		from = t.UTC()
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time %s is after end time %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}
