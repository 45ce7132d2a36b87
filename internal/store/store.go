package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/models"
)

// ErrMissingIndex is returned when a record is stored before its ICA was computed
var ErrMissingIndex = errors.New("record has no computed index")

// Store keeps monitoring records in memory, bounded to the most recent maxRecords of each kind
type Store struct {
	mu              sync.RWMutex
	field           []models.FieldMonitoring
	discharges      []models.DischargeMonitoring
	latestByStation map[string]models.FieldMonitoring
	nextFieldID     int64
	nextDischargeID int64
	maxRecords      int
}

// NewStore creates a new in-memory store
func NewStore(maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = 1000 // Default to store last 1000 records
	}

	return &Store{
		field:           make([]models.FieldMonitoring, 0, maxRecords),
		discharges:      make([]models.DischargeMonitoring, 0, maxRecords),
		latestByStation: make(map[string]models.FieldMonitoring),
		nextFieldID:     1,
		nextDischargeID: 1,
		maxRecords:      maxRecords,
	}
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping() error {
	return nil
}

// AddFieldMonitoring stores a computed field monitoring and assigns its ID
func (s *Store) AddFieldMonitoring(m *models.FieldMonitoring) error {
	if m.Index == nil {
		return ErrMissingIndex
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextFieldID
	s.nextFieldID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	s.field = append(s.field, *m)
	// Maintain maximum size by removing oldest entries
	if len(s.field) > s.maxRecords {
		s.field = s.field[1:]
	}

	if latest, ok := s.latestByStation[m.StationID]; !ok || !m.SampledAt.Before(latest.SampledAt) {
		s.latestByStation[m.StationID] = *m
	}
	return nil
}

// GetFieldMonitoring returns the field monitoring with the given ID
func (s *Store) GetFieldMonitoring(id int64) (*models.FieldMonitoring, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.field {
		if s.field[i].ID == id {
			rec := s.field[i]
			return &rec, true
		}
	}
	return nil, false
}

// GetRecentFieldMonitorings returns the most recent N field monitorings, newest first
func (s *Store) GetRecentFieldMonitorings(limit int) []models.FieldMonitoring {
	return s.GetFieldMonitoringsByStation("", limit)
}

// GetFieldMonitoringsByStation returns the most recent N samples of one station.
// An empty station ID matches every station.
func (s *Store) GetFieldMonitoringsByStation(stationID string, limit int) []models.FieldMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.FieldMonitoring, 0, len(s.field))
	for _, rec := range s.field {
		if stationID == "" || rec.StationID == stationID {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].SampledAt, result[i].ID, result[j].SampledAt, result[j].ID)
	})
	return limitSlice(result, limit)
}

// GetFieldMonitoringsInRange returns field monitorings sampled within [start, end], oldest first
func (s *Store) GetFieldMonitoringsInRange(start, end time.Time) []models.FieldMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FieldMonitoring
	for _, rec := range s.field {
		if inRange(rec.SampledAt, start, end) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return olderFirst(result[i].SampledAt, result[i].ID, result[j].SampledAt, result[j].ID)
	})
	return result
}

// GetFieldMonitoringsIngestedBetween returns field monitorings stored within
// (after, until], in storage order
func (s *Store) GetFieldMonitoringsIngestedBetween(after, until time.Time) []models.FieldMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FieldMonitoring
	for _, rec := range s.field {
		if ingestedBetween(rec.CreatedAt, after, until) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return olderFirst(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID)
	})
	return result
}

// GetLatestByStation returns the latest sample of every station
func (s *Store) GetLatestByStation() map[string]models.FieldMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.FieldMonitoring, len(s.latestByStation))
	for station, rec := range s.latestByStation {
		result[station] = rec
	}
	return result
}

// AddDischargeMonitoring stores a computed discharge monitoring and assigns its ID
func (s *Store) AddDischargeMonitoring(d *models.DischargeMonitoring) error {
	if d.Index == nil {
		return ErrMissingIndex
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.nextDischargeID
	s.nextDischargeID++
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	s.discharges = append(s.discharges, *d)
	if len(s.discharges) > s.maxRecords {
		s.discharges = s.discharges[1:]
	}
	return nil
}

// GetDischargeMonitoring returns the discharge monitoring with the given ID
func (s *Store) GetDischargeMonitoring(id int64) (*models.DischargeMonitoring, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.discharges {
		if s.discharges[i].ID == id {
			rec := s.discharges[i]
			return &rec, true
		}
	}
	return nil, false
}

// GetRecentDischargeMonitorings returns the most recent N discharge monitorings, newest first
func (s *Store) GetRecentDischargeMonitorings(limit int) []models.DischargeMonitoring {
	return s.GetDischargeMonitoringsByPoint("", limit)
}

// GetDischargeMonitoringsByPoint returns the most recent N samples of one discharge point.
// An empty point ID matches every point.
func (s *Store) GetDischargeMonitoringsByPoint(pointID string, limit int) []models.DischargeMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.DischargeMonitoring, 0, len(s.discharges))
	for _, rec := range s.discharges {
		if pointID == "" || rec.DischargePointID == pointID {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i].SampledAt, result[i].ID, result[j].SampledAt, result[j].ID)
	})
	return limitSlice(result, limit)
}

// GetDischargeMonitoringsInRange returns discharge monitorings sampled within [start, end], oldest first
func (s *Store) GetDischargeMonitoringsInRange(start, end time.Time) []models.DischargeMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.DischargeMonitoring
	for _, rec := range s.discharges {
		if inRange(rec.SampledAt, start, end) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return olderFirst(result[i].SampledAt, result[i].ID, result[j].SampledAt, result[j].ID)
	})
	return result
}

// GetDischargeMonitoringsIngestedBetween returns discharge monitorings stored
// within (after, until], in storage order
func (s *Store) GetDischargeMonitoringsIngestedBetween(after, until time.Time) []models.DischargeMonitoring {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.DischargeMonitoring
	for _, rec := range s.discharges {
		if ingestedBetween(rec.CreatedAt, after, until) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return olderFirst(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID)
	})
	return result
}

// GetQualitySummary counts the stored records per quality class
func (s *Store) GetQualitySummary() models.QualitySummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := models.NewQualitySummary()
	for _, rec := range s.field {
		summary.Add(models.KindFieldMonitoring, rec.Index.QualityClass)
	}
	for _, rec := range s.discharges {
		summary.Add(models.KindDischargeMonitoring, rec.Index.QualityClass)
	}
	return summary
}

// GetRecordCounts returns the number of stored records of each kind
func (s *Store) GetRecordCounts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.field), len(s.discharges)
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// ingestedBetween is half-open so consecutive windows never share a record
func ingestedBetween(t, after, until time.Time) bool {
	return t.After(after) && !t.After(until)
}

// Ties on time are broken by ID, matching the ORDER BY of the database store.
func newerFirst(ti time.Time, idi int64, tj time.Time, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}

func olderFirst(ti time.Time, idi int64, tj time.Time, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return idi < idj
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
