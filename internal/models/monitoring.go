package models

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
)

// RecordKind distinguishes the two record types that carry an ICA
type RecordKind string

const (
	KindFieldMonitoring     RecordKind = "field_monitoring"
	KindDischargeMonitoring RecordKind = "discharge_monitoring"
)

// FieldMonitoring represents a sample taken at a river monitoring station
type FieldMonitoring struct {
	ID        int64
	StationID string
	SampledAt time.Time

	OD  *apd.Decimal // dissolved oxygen, % saturation
	SST *apd.Decimal // suspended solids, mg/L
	DQO *apd.Decimal // chemical oxygen demand, mg/L
	CE  *apd.Decimal // conductivity, µS/cm
	PH  *apd.Decimal
	N   *apd.Decimal // total nitrogen, mg/L
	P   *apd.Decimal // total phosphorus, mg/L

	Index     *IndexResult
	CreatedAt time.Time
}

// NewFieldMonitoring creates a field monitoring record from raw measurements
func NewFieldMonitoring(stationID string, sampledAt time.Time, raw ica.RawSample) *FieldMonitoring {
	return &FieldMonitoring{
		StationID: stationID,
		SampledAt: sampledAt,
		OD:        raw.OD,
		SST:       raw.SST,
		DQO:       raw.DQO,
		CE:        raw.CE,
		PH:        raw.PH,
		N:         raw.N,
		P:         raw.P,
	}
}

func (m *FieldMonitoring) DissolvedOxygen() *apd.Decimal      { return m.OD }
func (m *FieldMonitoring) SuspendedSolids() *apd.Decimal      { return m.SST }
func (m *FieldMonitoring) ChemicalOxygenDemand() *apd.Decimal { return m.DQO }
func (m *FieldMonitoring) Conductivity() *apd.Decimal         { return m.CE }
func (m *FieldMonitoring) Acidity() *apd.Decimal              { return m.PH }
func (m *FieldMonitoring) Nitrogen() *apd.Decimal             { return m.N }
func (m *FieldMonitoring) Phosphorus() *apd.Decimal           { return m.P }

// ApplyIndex stores the derived fields of set on the record in one step.
func (m *FieldMonitoring) ApplyIndex(set *ica.IndexSet) error {
	result, err := NewIndexResult(set)
	if err != nil {
		return fmt.Errorf("field monitoring %s: %w", m.StationID, err)
	}
	m.Index = result
	return nil
}

// FieldMonitoringView is the JSON form of a field monitoring record
type FieldMonitoringView struct {
	ID           int64            `json:"id"`
	StationID    string           `json:"station_id"`
	SampledAt    time.Time        `json:"sampled_at"`
	Measurements MeasurementsView `json:"measurements"`
	Index        *IndexView       `json:"index,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// View returns the JSON form of the record
func (m *FieldMonitoring) View() FieldMonitoringView {
	return FieldMonitoringView{
		ID:           m.ID,
		StationID:    m.StationID,
		SampledAt:    m.SampledAt,
		Measurements: NewMeasurementsView(m),
		Index:        m.Index.View(),
		CreatedAt:    m.CreatedAt,
	}
}

// DischargeParameters holds the laboratory results of a discharge sample
type DischargeParameters struct {
	DissolvedOxygen *apd.Decimal
	SuspendedSolids *apd.Decimal
	ChemicalDemand  *apd.Decimal
	Conductivity    *apd.Decimal
	PH              *apd.Decimal
	TotalNitrogen   *apd.Decimal
	TotalPhosphorus *apd.Decimal
}

// DischargeMonitoring represents a sample taken at a permitted discharge point
type DischargeMonitoring struct {
	ID               int64
	DischargePointID string
	PermitNumber     string
	CampaignYear     int
	SampledAt        time.Time
	FlowRate         *apd.Decimal // L/s
	Parameters       DischargeParameters

	Index     *IndexResult
	CreatedAt time.Time
}

// NewDischargeMonitoring creates a discharge monitoring record from raw measurements
func NewDischargeMonitoring(pointID, permit string, sampledAt time.Time, flowRate *apd.Decimal, raw ica.RawSample) *DischargeMonitoring {
	return &DischargeMonitoring{
		DischargePointID: pointID,
		PermitNumber:     permit,
		CampaignYear:     sampledAt.Year(),
		SampledAt:        sampledAt,
		FlowRate:         flowRate,
		Parameters: DischargeParameters{
			DissolvedOxygen: raw.OD,
			SuspendedSolids: raw.SST,
			ChemicalDemand:  raw.DQO,
			Conductivity:    raw.CE,
			PH:              raw.PH,
			TotalNitrogen:   raw.N,
			TotalPhosphorus: raw.P,
		},
	}
}

func (d *DischargeMonitoring) DissolvedOxygen() *apd.Decimal { return d.Parameters.DissolvedOxygen }
func (d *DischargeMonitoring) SuspendedSolids() *apd.Decimal { return d.Parameters.SuspendedSolids }
func (d *DischargeMonitoring) ChemicalOxygenDemand() *apd.Decimal {
	return d.Parameters.ChemicalDemand
}
func (d *DischargeMonitoring) Conductivity() *apd.Decimal { return d.Parameters.Conductivity }
func (d *DischargeMonitoring) Acidity() *apd.Decimal      { return d.Parameters.PH }
func (d *DischargeMonitoring) Nitrogen() *apd.Decimal     { return d.Parameters.TotalNitrogen }
func (d *DischargeMonitoring) Phosphorus() *apd.Decimal   { return d.Parameters.TotalPhosphorus }

// ApplyIndex stores the derived fields of set on the record in one step.
func (d *DischargeMonitoring) ApplyIndex(set *ica.IndexSet) error {
	result, err := NewIndexResult(set)
	if err != nil {
		return fmt.Errorf("discharge monitoring %s: %w", d.DischargePointID, err)
	}
	d.Index = result
	return nil
}

// DischargeMonitoringView is the JSON form of a discharge monitoring record
type DischargeMonitoringView struct {
	ID               int64            `json:"id"`
	DischargePointID string           `json:"discharge_point_id"`
	PermitNumber     string           `json:"permit_number,omitempty"`
	CampaignYear     int              `json:"campaign_year"`
	SampledAt        time.Time        `json:"sampled_at"`
	FlowRate         string           `json:"flow_rate,omitempty"`
	Measurements     MeasurementsView `json:"measurements"`
	Index            *IndexView       `json:"index,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// View returns the JSON form of the record
func (d *DischargeMonitoring) View() DischargeMonitoringView {
	return DischargeMonitoringView{
		ID:               d.ID,
		DischargePointID: d.DischargePointID,
		PermitNumber:     d.PermitNumber,
		CampaignYear:     d.CampaignYear,
		SampledAt:        d.SampledAt,
		FlowRate:         ica.Format(d.FlowRate),
		Measurements:     NewMeasurementsView(d),
		Index:            d.Index.View(),
		CreatedAt:        d.CreatedAt,
	}
}
