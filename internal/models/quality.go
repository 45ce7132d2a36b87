package models

import (
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

// QualityStatus is the short form of a computed record pushed to listeners
type QualityStatus struct {
	Kind                 RecordKind       `json:"kind"`
	RecordID             int64            `json:"record_id"`
	SiteID               string           `json:"site_id"`
	SampledAt            time.Time        `json:"sampled_at"`
	VariableCount        int              `json:"variable_count"`
	CompositeCoefficient string           `json:"composite_coefficient"`
	QualityClass         ica.QualityClass `json:"quality_class"`
}

// Status returns the quality status of the record. The record must carry an index.
func (m *FieldMonitoring) Status() QualityStatus {
	return newQualityStatus(KindFieldMonitoring, m.ID, m.StationID, m.SampledAt, m.Index)
}

// Status returns the quality status of the record. The record must carry an index.
func (d *DischargeMonitoring) Status() QualityStatus {
	return newQualityStatus(KindDischargeMonitoring, d.ID, d.DischargePointID, d.SampledAt, d.Index)
}

func newQualityStatus(kind RecordKind, id int64, site string, at time.Time, idx *IndexResult) QualityStatus {
	status := QualityStatus{Kind: kind, RecordID: id, SiteID: site, SampledAt: at}
	if idx != nil {
		status.VariableCount = idx.VariableCount
		status.CompositeCoefficient = ica.Format(idx.CompositeCoefficient)
		status.QualityClass = idx.QualityClass
	}
	return status
}

// QualitySummary counts stored records per quality class
type QualitySummary struct {
	FieldMonitorings     map[string]int `json:"field_monitorings"`
	DischargeMonitorings map[string]int `json:"discharge_monitorings"`
	Total                int            `json:"total"`
}

// NewQualitySummary returns a summary with every class present at zero
func NewQualitySummary() QualitySummary {
	s := QualitySummary{
		FieldMonitorings:     make(map[string]int, len(ica.QualityClasses)),
		DischargeMonitorings: make(map[string]int, len(ica.QualityClasses)),
	}
	for _, c := range ica.QualityClasses {
		s.FieldMonitorings[c.String()] = 0
		s.DischargeMonitorings[c.String()] = 0
	}
	return s
}

// Add counts one record of the given kind and class
func (s *QualitySummary) Add(kind RecordKind, class ica.QualityClass) {
	s.AddCount(kind, class, 1)
}

// AddCount counts n records of the given kind and class
func (s *QualitySummary) AddCount(kind RecordKind, class ica.QualityClass, n int) {
	switch kind {
	case KindFieldMonitoring:
		s.FieldMonitorings[class.String()] += n
	case KindDischargeMonitoring:
		s.DischargeMonitorings[class.String()] += n
	default:
		return
	}
	s.Total += n
}
