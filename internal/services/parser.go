package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
)

// sampleColumns is the order of values in comma-separated samples
var sampleColumns = []string{"od", "sst", "dqo", "ce", "ph", "n", "p"}

// SampleParser handles parsing of samples from stations and laboratory files
type SampleParser struct {
	now func() time.Time
}

// NewSampleParser creates a new instance of SampleParser
func NewSampleParser() *SampleParser {
	return &SampleParser{now: time.Now}
}

// ParseFieldJSON parses a station JSON payload. The station ID from the topic
// is used when the payload does not name one.
func (sp *SampleParser) ParseFieldJSON(payload []byte, stationID string) (*models.FieldMonitoring, error) {
	var req models.FieldMonitoringRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to parse sample JSON: %w", err)
	}
	if req.StationID == "" {
		req.StationID = stationID
	}
	return req.ToRecord(sp.now())
}

// ParseDischargeJSON parses a discharge point JSON payload. The point ID from
// the topic is used when the payload does not name one.
func (sp *SampleParser) ParseDischargeJSON(payload []byte, pointID string) (*models.DischargeMonitoring, error) {
	var req models.DischargeMonitoringRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to parse discharge JSON: %w", err)
	}
	if req.DischargePointID == "" {
		req.DischargePointID = pointID
	}
	return req.ToRecord(sp.now())
}

// ParseSampleString parses comma-separated sample values (fallback format)
// Expected format: "od,sst,dqo,ce,ph" optionally followed by ",n,p"
func (sp *SampleParser) ParseSampleString(payload string) (ica.RawSample, error) {
	return sp.ParseSampleFields(strings.Split(strings.TrimSpace(payload), ","))
}

// ParseSampleFields parses the values of one comma-separated sample. Empty
// values are treated as absent.
func (sp *SampleParser) ParseSampleFields(fields []string) (ica.RawSample, error) {
	if len(fields) != 5 && len(fields) != 7 {
		return ica.RawSample{}, fmt.Errorf("failed to parse sample: expected 5 or 7 values (od,sst,dqo,ce,ph[,n,p]), got %d", len(fields))
	}

	var raw ica.RawSample
	targets := []**apd.Decimal{&raw.OD, &raw.SST, &raw.DQO, &raw.CE, &raw.PH, &raw.N, &raw.P}
	for i, field := range fields {
		value := strings.TrimSpace(field)
		if value == "" {
			continue
		}
		d, err := ica.ParseDecimal(value)
		if err != nil {
			return ica.RawSample{}, &models.FieldError{Field: sampleColumns[i], Value: value, Message: "not a finite decimal"}
		}
		*targets[i] = d
	}
	return raw, nil
}

// FormatIndexSet formats a computed index set for logging or debugging
func (sp *SampleParser) FormatIndexSet(set *ica.IndexSet) string {
	nutrient := "n/a"
	if set.HasNutrient() {
		nutrient = fmt.Sprintf("%s (ratio %s)", ica.Format(set.NutrientIndex), ica.Format(set.NutrientRatio))
	}
	return fmt.Sprintf("ICA: %s [%s], variables: %d, IOD: %s, ISST: %s, IDQO: %s, ICE: %s, IPH: %s, INP: %s",
		ica.Format(set.CompositeCoefficient),
		set.QualityClass,
		set.VariableCount,
		ica.Format(set.OxygenIndex),
		ica.Format(set.SolidsIndex),
		ica.Format(set.DemandIndex),
		ica.Format(set.ConductivityIndex),
		ica.Format(set.AcidityIndex),
		nutrient)
}
