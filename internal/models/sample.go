package models

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

// SampleInput represents the raw JSON structure received from stations and clients.
// Values may be sent either as JSON numbers or as numeric strings.
type SampleInput struct {
	DissolvedOxygen      json.Number `json:"od"`
	SuspendedSolids      json.Number `json:"sst"`
	ChemicalOxygenDemand json.Number `json:"dqo"`
	Conductivity         json.Number `json:"ce"`
	PH                   json.Number `json:"ph"`
	Nitrogen             json.Number `json:"n,omitempty"`
	Phosphorus           json.Number `json:"p,omitempty"`
}

// FieldError reports a measurement that could not be parsed as a decimal
type FieldError struct {
	Field   string
	Value   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ToRawSample parses every present field into an exact decimal. Absent fields
// stay nil so the engine can report which required input is missing.
func (in SampleInput) ToRawSample() (ica.RawSample, error) {
	var raw ica.RawSample
	fields := []struct {
		name  string
		value json.Number
		dst   **apd.Decimal
	}{
		{"od", in.DissolvedOxygen, &raw.OD},
		{"sst", in.SuspendedSolids, &raw.SST},
		{"dqo", in.ChemicalOxygenDemand, &raw.DQO},
		{"ce", in.Conductivity, &raw.CE},
		{"ph", in.PH, &raw.PH},
		{"n", in.Nitrogen, &raw.N},
		{"p", in.Phosphorus, &raw.P},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := ica.ParseDecimal(string(f.value))
		if err != nil {
			return ica.RawSample{}, &FieldError{Field: f.name, Value: string(f.value), Message: "not a finite decimal"}
		}
		*f.dst = d
	}
	return raw, nil
}

// MeasurementsView is the JSON form of the seven raw measurements
type MeasurementsView struct {
	DissolvedOxygen      string `json:"od"`
	SuspendedSolids      string `json:"sst"`
	ChemicalOxygenDemand string `json:"dqo"`
	Conductivity         string `json:"ce"`
	PH                   string `json:"ph"`
	Nitrogen             string `json:"n,omitempty"`
	Phosphorus           string `json:"p,omitempty"`
}

// NewMeasurementsView renders the raw values of src
func NewMeasurementsView(src ica.Source) MeasurementsView {
	return MeasurementsView{
		DissolvedOxygen:      ica.Format(src.DissolvedOxygen()),
		SuspendedSolids:      ica.Format(src.SuspendedSolids()),
		ChemicalOxygenDemand: ica.Format(src.ChemicalOxygenDemand()),
		Conductivity:         ica.Format(src.Conductivity()),
		PH:                   ica.Format(src.Acidity()),
		Nitrogen:             ica.Format(src.Nitrogen()),
		Phosphorus:           ica.Format(src.Phosphorus()),
	}
}
