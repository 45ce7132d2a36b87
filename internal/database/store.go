package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/store"
)

// DatabaseStore implements persistent storage on PostgreSQL or SQLite
type DatabaseStore struct {
	db *DB
}

var _ store.DataStore = (*DatabaseStore)(nil)

// NewDatabaseStore creates a new database store
func NewDatabaseStore(db *DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Ping checks that the database is reachable
func (s *DatabaseStore) Ping() error {
	return s.db.Ping()
}

const indexColumnList = `iod, isst, idqo, ice, iph, rnp, inp, variable_count, ica, quality_class`

const fieldColumns = `id, station_id, sampled_at, od, sst, dqo, ce, ph, n, p, ` + indexColumnList + `, created_at`

const dischargeColumns = `id, discharge_point_id, permit_number, campaign_year, sampled_at, flow_rate,
	od, sst, dqo, ce, ph, n, p, ` + indexColumnList + `, created_at`

// indexRow maps the derived ICA columns shared by both tables
type indexRow struct {
	IOD           string         `db:"iod"`
	ISST          string         `db:"isst"`
	IDQO          string         `db:"idqo"`
	ICE           string         `db:"ice"`
	IPH           string         `db:"iph"`
	RNP           sql.NullString `db:"rnp"`
	INP           sql.NullString `db:"inp"`
	VariableCount int            `db:"variable_count"`
	ICA           string         `db:"ica"`
	QualityClass  string         `db:"quality_class"`
}

type fieldRow struct {
	ID        int64          `db:"id"`
	StationID string         `db:"station_id"`
	SampledAt time.Time      `db:"sampled_at"`
	OD        string         `db:"od"`
	SST       string         `db:"sst"`
	DQO       string         `db:"dqo"`
	CE        string         `db:"ce"`
	PH        string         `db:"ph"`
	N         sql.NullString `db:"n"`
	P         sql.NullString `db:"p"`
	indexRow
	CreatedAt time.Time `db:"created_at"`
}

type dischargeRow struct {
	ID               int64          `db:"id"`
	DischargePointID string         `db:"discharge_point_id"`
	PermitNumber     string         `db:"permit_number"`
	CampaignYear     int            `db:"campaign_year"`
	SampledAt        time.Time      `db:"sampled_at"`
	FlowRate         sql.NullString `db:"flow_rate"`
	OD               string         `db:"od"`
	SST              string         `db:"sst"`
	DQO              string         `db:"dqo"`
	CE               string         `db:"ce"`
	PH               string         `db:"ph"`
	N                sql.NullString `db:"n"`
	P                sql.NullString `db:"p"`
	indexRow
	CreatedAt time.Time `db:"created_at"`
}

// AddFieldMonitoring stores a computed field monitoring and assigns its ID
func (s *DatabaseStore) AddFieldMonitoring(m *models.FieldMonitoring) error {
	if m.Index == nil {
		return store.ErrMissingIndex
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	args := newArgs()
	args.add(m.StationID, m.SampledAt.UTC())
	args.raw(m.OD, m.SST, m.DQO, m.CE, m.PH, m.N, m.P)
	args.index(m.Index)
	args.add(m.CreatedAt)
	if args.err != nil {
		return fmt.Errorf("failed to encode field monitoring: %w", args.err)
	}

	query := s.db.Rebind(`
		INSERT INTO field_monitorings (station_id, sampled_at, od, sst, dqo, ce, ph, n, p,
			` + indexColumnList + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.db.QueryRowx(query, args.values...).Scan(&m.ID); err != nil {
		log.Printf("❌ Error storing field monitoring: %v", err)
		return fmt.Errorf("failed to store field monitoring: %w", err)
	}
	return nil
}

// GetFieldMonitoring returns the field monitoring with the given ID
func (s *DatabaseStore) GetFieldMonitoring(id int64) (*models.FieldMonitoring, bool) {
	var row fieldRow
	query := s.db.Rebind(`SELECT ` + fieldColumns + ` FROM field_monitorings WHERE id = ?`)
	if err := s.db.Get(&row, query, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("❌ Error getting field monitoring %d: %v", id, err)
		}
		return nil, false
	}

	rec, err := row.toModel()
	if err != nil {
		log.Printf("❌ Error decoding field monitoring %d: %v", id, err)
		return nil, false
	}
	return rec, true
}

// GetRecentFieldMonitorings returns the most recent N field monitorings, newest first
func (s *DatabaseStore) GetRecentFieldMonitorings(limit int) []models.FieldMonitoring {
	return s.selectField("recent field monitorings",
		`SELECT `+fieldColumns+` FROM field_monitorings ORDER BY sampled_at DESC, id DESC LIMIT ?`, normalizeLimit(limit))
}

// GetFieldMonitoringsByStation returns the most recent N samples of one station.
// An empty station ID matches every station.
func (s *DatabaseStore) GetFieldMonitoringsByStation(stationID string, limit int) []models.FieldMonitoring {
	if stationID == "" {
		return s.GetRecentFieldMonitorings(limit)
	}
	return s.selectField("field monitorings by station",
		`SELECT `+fieldColumns+` FROM field_monitorings WHERE station_id = ?
		ORDER BY sampled_at DESC, id DESC LIMIT ?`, stationID, normalizeLimit(limit))
}

// GetFieldMonitoringsInRange returns field monitorings sampled within [start, end], oldest first
func (s *DatabaseStore) GetFieldMonitoringsInRange(start, end time.Time) []models.FieldMonitoring {
	return s.selectField("field monitorings in range",
		`SELECT `+fieldColumns+` FROM field_monitorings WHERE sampled_at >= ? AND sampled_at <= ?
		ORDER BY sampled_at ASC, id ASC`, start.UTC(), end.UTC())
}

// GetFieldMonitoringsIngestedBetween returns field monitorings stored within
// (after, until], in storage order
func (s *DatabaseStore) GetFieldMonitoringsIngestedBetween(after, until time.Time) []models.FieldMonitoring {
	return s.selectField("ingested field monitorings",
		`SELECT `+fieldColumns+` FROM field_monitorings WHERE created_at > ? AND created_at <= ?
		ORDER BY created_at ASC, id ASC`, after.UTC(), until.UTC())
}

// GetLatestByStation returns the latest sample of every station
func (s *DatabaseStore) GetLatestByStation() map[string]models.FieldMonitoring {
	records := s.selectField("latest field monitorings",
		`SELECT `+fieldColumns+` FROM field_monitorings f
		WHERE f.id = (
			SELECT l.id FROM field_monitorings l
			WHERE l.station_id = f.station_id
			ORDER BY l.sampled_at DESC, l.id DESC
			LIMIT 1
		)`)

	result := make(map[string]models.FieldMonitoring, len(records))
	for _, rec := range records {
		result[rec.StationID] = rec
	}
	return result
}

func (s *DatabaseStore) selectField(label, query string, args ...interface{}) []models.FieldMonitoring {
	var rows []fieldRow
	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		log.Printf("❌ Error getting %s: %v", label, err)
		return []models.FieldMonitoring{}
	}

	result := make([]models.FieldMonitoring, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			log.Printf("⚠️  Skipping field monitoring %d: %v", row.ID, err)
			continue
		}
		result = append(result, *rec)
	}
	return result
}

// AddDischargeMonitoring stores a computed discharge monitoring and assigns its ID
func (s *DatabaseStore) AddDischargeMonitoring(d *models.DischargeMonitoring) error {
	if d.Index == nil {
		return store.ErrMissingIndex
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	p := d.Parameters
	args := newArgs()
	args.add(d.DischargePointID, d.PermitNumber, d.CampaignYear, d.SampledAt.UTC())
	args.raw(d.FlowRate, p.DissolvedOxygen, p.SuspendedSolids, p.ChemicalDemand, p.Conductivity, p.PH,
		p.TotalNitrogen, p.TotalPhosphorus)
	args.index(d.Index)
	args.add(d.CreatedAt)
	if args.err != nil {
		return fmt.Errorf("failed to encode discharge monitoring: %w", args.err)
	}

	query := s.db.Rebind(`
		INSERT INTO discharge_monitorings (discharge_point_id, permit_number, campaign_year, sampled_at,
			flow_rate, od, sst, dqo, ce, ph, n, p, ` + indexColumnList + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.db.QueryRowx(query, args.values...).Scan(&d.ID); err != nil {
		log.Printf("❌ Error storing discharge monitoring: %v", err)
		return fmt.Errorf("failed to store discharge monitoring: %w", err)
	}
	return nil
}

// GetDischargeMonitoring returns the discharge monitoring with the given ID
func (s *DatabaseStore) GetDischargeMonitoring(id int64) (*models.DischargeMonitoring, bool) {
	var row dischargeRow
	query := s.db.Rebind(`SELECT ` + dischargeColumns + ` FROM discharge_monitorings WHERE id = ?`)
	if err := s.db.Get(&row, query, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("❌ Error getting discharge monitoring %d: %v", id, err)
		}
		return nil, false
	}

	rec, err := row.toModel()
	if err != nil {
		log.Printf("❌ Error decoding discharge monitoring %d: %v", id, err)
		return nil, false
	}
	return rec, true
}

// GetRecentDischargeMonitorings returns the most recent N discharge monitorings, newest first
func (s *DatabaseStore) GetRecentDischargeMonitorings(limit int) []models.DischargeMonitoring {
	return s.selectDischarge("recent discharge monitorings",
		`SELECT `+dischargeColumns+` FROM discharge_monitorings ORDER BY sampled_at DESC, id DESC LIMIT ?`,
		normalizeLimit(limit))
}

// GetDischargeMonitoringsByPoint returns the most recent N samples of one discharge point.
// An empty point ID matches every point.
func (s *DatabaseStore) GetDischargeMonitoringsByPoint(pointID string, limit int) []models.DischargeMonitoring {
	if pointID == "" {
		return s.GetRecentDischargeMonitorings(limit)
	}
	return s.selectDischarge("discharge monitorings by point",
		`SELECT `+dischargeColumns+` FROM discharge_monitorings WHERE discharge_point_id = ?
		ORDER BY sampled_at DESC, id DESC LIMIT ?`, pointID, normalizeLimit(limit))
}

// GetDischargeMonitoringsInRange returns discharge monitorings sampled within [start, end], oldest first
func (s *DatabaseStore) GetDischargeMonitoringsInRange(start, end time.Time) []models.DischargeMonitoring {
	return s.selectDischarge("discharge monitorings in range",
		`SELECT `+dischargeColumns+` FROM discharge_monitorings WHERE sampled_at >= ? AND sampled_at <= ?
		ORDER BY sampled_at ASC, id ASC`, start.UTC(), end.UTC())
}

// GetDischargeMonitoringsIngestedBetween returns discharge monitorings stored
// within (after, until], in storage order
func (s *DatabaseStore) GetDischargeMonitoringsIngestedBetween(after, until time.Time) []models.DischargeMonitoring {
	return s.selectDischarge("ingested discharge monitorings",
		`SELECT `+dischargeColumns+` FROM discharge_monitorings WHERE created_at > ? AND created_at <= ?
		ORDER BY created_at ASC, id ASC`, after.UTC(), until.UTC())
}

func (s *DatabaseStore) selectDischarge(label, query string, args ...interface{}) []models.DischargeMonitoring {
	var rows []dischargeRow
	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		log.Printf("❌ Error getting %s: %v", label, err)
		return []models.DischargeMonitoring{}
	}

	result := make([]models.DischargeMonitoring, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			log.Printf("⚠️  Skipping discharge monitoring %d: %v", row.ID, err)
			continue
		}
		result = append(result, *rec)
	}
	return result
}

// GetQualitySummary counts the stored records per quality class
func (s *DatabaseStore) GetQualitySummary() models.QualitySummary {
	summary := models.NewQualitySummary()

	tables := []struct {
		kind  models.RecordKind
		table string
	}{
		{models.KindFieldMonitoring, "field_monitorings"},
		{models.KindDischargeMonitoring, "discharge_monitorings"},
	}
	for _, t := range tables {
		var counts []struct {
			QualityClass string `db:"quality_class"`
			Count        int    `db:"count"`
		}
		query := fmt.Sprintf(`SELECT quality_class, COUNT(*) AS count FROM %s GROUP BY quality_class`, t.table)
		if err := s.db.Select(&counts, query); err != nil {
			log.Printf("❌ Error counting %s by quality class: %v", t.table, err)
			continue
		}
		for _, c := range counts {
			class, err := ica.ParseQualityClass(c.QualityClass)
			if err != nil {
				log.Printf("⚠️  Unknown quality class %q in %s", c.QualityClass, t.table)
				continue
			}
			summary.AddCount(t.kind, class, c.Count)
		}
	}
	return summary
}

// GetRecordCounts returns the number of stored records of each kind
func (s *DatabaseStore) GetRecordCounts() (int, int) {
	var field, discharge int
	if err := s.db.Get(&field, `SELECT COUNT(*) FROM field_monitorings`); err != nil {
		log.Printf("❌ Error counting field monitorings: %v", err)
	}
	if err := s.db.Get(&discharge, `SELECT COUNT(*) FROM discharge_monitorings`); err != nil {
		log.Printf("❌ Error counting discharge monitorings: %v", err)
	}
	return field, discharge
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

// queryArgs accumulates insert arguments, quantizing decimals to their stored scale
type queryArgs struct {
	values []interface{}
	err    error
}

func newArgs() *queryArgs {
	return &queryArgs{}
}

func (a *queryArgs) add(values ...interface{}) {
	a.values = append(a.values, values...)
}

func (a *queryArgs) decimal(d *apd.Decimal, places int32) {
	if a.err != nil {
		return
	}
	if d == nil {
		a.values = append(a.values, nil)
		return
	}
	q, err := ica.Quantize(d, places)
	if err != nil {
		a.err = err
		return
	}
	a.values = append(a.values, ica.Format(q))
}

func (a *queryArgs) raw(values ...*apd.Decimal) {
	for _, d := range values {
		a.decimal(d, models.RawValuePlaces)
	}
}

func (a *queryArgs) index(idx *models.IndexResult) {
	for _, d := range []*apd.Decimal{
		idx.OxygenIndex, idx.SolidsIndex, idx.DemandIndex, idx.ConductivityIndex,
		idx.AcidityIndex, idx.NutrientRatio, idx.NutrientIndex,
	} {
		a.decimal(d, models.SubIndexPlaces)
	}
	a.add(idx.VariableCount)
	a.decimal(idx.CompositeCoefficient, models.CompositePlaces)
	a.add(idx.QualityClass.String())
}

// decoder parses stored decimal text, keeping the first error
type decoder struct {
	err error
}

func (d *decoder) required(name, value string) *apd.Decimal {
	if d.err != nil {
		return nil
	}
	v, err := ica.ParseDecimal(value)
	if err != nil {
		d.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func (d *decoder) optional(name string, value sql.NullString) *apd.Decimal {
	if !value.Valid {
		return nil
	}
	return d.required(name, value.String)
}

func (d *decoder) index(row indexRow) *models.IndexResult {
	idx := &models.IndexResult{
		OxygenIndex:          d.required("iod", row.IOD),
		SolidsIndex:          d.required("isst", row.ISST),
		DemandIndex:          d.required("idqo", row.IDQO),
		ConductivityIndex:    d.required("ice", row.ICE),
		AcidityIndex:         d.required("iph", row.IPH),
		NutrientRatio:        d.optional("rnp", row.RNP),
		NutrientIndex:        d.optional("inp", row.INP),
		VariableCount:        row.VariableCount,
		CompositeCoefficient: d.required("ica", row.ICA),
	}
	if d.err != nil {
		return nil
	}
	class, err := ica.ParseQualityClass(row.QualityClass)
	if err != nil {
		d.err = fmt.Errorf("column quality_class: %w", err)
		return nil
	}
	idx.QualityClass = class
	return idx
}

func (r fieldRow) toModel() (*models.FieldMonitoring, error) {
	var d decoder
	rec := &models.FieldMonitoring{
		ID:        r.ID,
		StationID: r.StationID,
		SampledAt: r.SampledAt.UTC(),
		OD:        d.required("od", r.OD),
		SST:       d.required("sst", r.SST),
		DQO:       d.required("dqo", r.DQO),
		CE:        d.required("ce", r.CE),
		PH:        d.required("ph", r.PH),
		N:         d.optional("n", r.N),
		P:         d.optional("p", r.P),
		CreatedAt: r.CreatedAt.UTC(),
	}
	rec.Index = d.index(r.indexRow)
	if d.err != nil {
		return nil, d.err
	}
	return rec, nil
}

func (r dischargeRow) toModel() (*models.DischargeMonitoring, error) {
	var d decoder
	rec := &models.DischargeMonitoring{
		ID:               r.ID,
		DischargePointID: r.DischargePointID,
		PermitNumber:     r.PermitNumber,
		CampaignYear:     r.CampaignYear,
		SampledAt:        r.SampledAt.UTC(),
		FlowRate:         d.optional("flow_rate", r.FlowRate),
		Parameters: models.DischargeParameters{
			DissolvedOxygen: d.required("od", r.OD),
			SuspendedSolids: d.required("sst", r.SST),
			ChemicalDemand:  d.required("dqo", r.DQO),
			Conductivity:    d.required("ce", r.CE),
			PH:              d.required("ph", r.PH),
			TotalNitrogen:   d.optional("n", r.N),
			TotalPhosphorus: d.optional("p", r.P),
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
	rec.Index = d.index(r.indexRow)
	if d.err != nil {
		return nil, d.err
	}
	return rec, nil
}
