package services

import (
	"fmt"
	"log"
	"sync"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/store"
)

// KindPreview labels stateless computations in metrics
const KindPreview = "preview"

// Notifier receives the outcome of every record computation
type Notifier interface {
	NotifyIndexComputed(models.QualityStatus)
	NotifyIndexRejected(kind models.RecordKind, siteID string, err error)
}

// indexedRecord is any record the ICA can be computed for and merged into
type indexedRecord interface {
	ica.Source
	ApplyIndex(*ica.IndexSet) error
}

// MonitoringService computes the ICA of incoming records and persists them
type MonitoringService struct {
	store     store.DataStore
	metrics   *metrics.Collector
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewMonitoringService creates a new monitoring service. metrics may be nil.
func NewMonitoringService(dataStore store.DataStore, collector *metrics.Collector) *MonitoringService {
	return &MonitoringService{
		store:   dataStore,
		metrics: collector,
	}
}

// AddNotifier registers a listener for computed and rejected records
func (s *MonitoringService) AddNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// Store returns the underlying data store
func (s *MonitoringService) Store() store.DataStore {
	return s.store
}

// Preview computes the ICA of raw measurements without storing anything
func (s *MonitoringService) Preview(raw ica.RawSample) (*ica.IndexSet, error) {
	set, err := s.compute(KindPreview, raw)
	if err == nil && s.metrics != nil {
		s.metrics.RecordComputation(KindPreview, set.QualityClass.String(), set.CompositeCoefficient)
	}
	return set, err
}

// RecordFieldMonitoring computes the ICA of m, merges it and stores the record.
// The record is not stored when the computation fails.
func (s *MonitoringService) RecordFieldMonitoring(m *models.FieldMonitoring) error {
	kind := models.KindFieldMonitoring
	if err := s.computeInto(kind, m.StationID, m); err != nil {
		return err
	}

	if err := s.store.AddFieldMonitoring(m); err != nil {
		s.recordStoreError(kind)
		return fmt.Errorf("failed to store field monitoring for %s: %w", m.StationID, err)
	}

	log.Printf("🌊 Field monitoring #%d at %s: ICA %s (%s, %d variables)",
		m.ID, m.StationID, ica.Format(m.Index.CompositeCoefficient), m.Index.QualityClass, m.Index.VariableCount)
	s.notifyComputed(m.Status())
	return nil
}

// RecordDischargeMonitoring computes the ICA of d, merges it and stores the record.
// The record is not stored when the computation fails.
func (s *MonitoringService) RecordDischargeMonitoring(d *models.DischargeMonitoring) error {
	kind := models.KindDischargeMonitoring
	if err := s.computeInto(kind, d.DischargePointID, d); err != nil {
		return err
	}

	if err := s.store.AddDischargeMonitoring(d); err != nil {
		s.recordStoreError(kind)
		return fmt.Errorf("failed to store discharge monitoring for %s: %w", d.DischargePointID, err)
	}

	log.Printf("🌊 Discharge monitoring #%d at %s: ICA %s (%s, %d variables)",
		d.ID, d.DischargePointID, ica.Format(d.Index.CompositeCoefficient), d.Index.QualityClass, d.Index.VariableCount)
	s.notifyComputed(d.Status())
	return nil
}

func (s *MonitoringService) computeInto(kind models.RecordKind, siteID string, rec indexedRecord) error {
	set, err := s.compute(string(kind), rec)
	if err != nil {
		log.Printf("❌ ICA rejected for %s %s (%s): %v", kind, siteID, ica.KindName(err), err)
		s.notifyRejected(kind, siteID, err)
		return fmt.Errorf("%s %s: %w", kind, siteID, err)
	}
	if err := rec.ApplyIndex(set); err != nil {
		log.Printf("❌ ICA result for %s %s could not be stored: %v", kind, siteID, err)
		if s.metrics != nil {
			s.metrics.RecordFailure(string(kind), ica.KindName(err))
		}
		s.notifyRejected(kind, siteID, err)
		return fmt.Errorf("%s %s: %w", kind, siteID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordComputation(string(kind), set.QualityClass.String(), set.CompositeCoefficient)
	}
	return nil
}

func (s *MonitoringService) compute(kind string, src ica.Source) (*ica.IndexSet, error) {
	var timer *metrics.Timer
	if s.metrics != nil {
		timer = s.metrics.NewTimer(s.metrics.ComputeDuration)
	}

	set, err := ica.Compute(src)

	if s.metrics != nil {
		timer.ObserveDuration()
		if err != nil {
			s.metrics.RecordFailure(kind, ica.KindName(err))
		}
	}
	return set, err
}

func (s *MonitoringService) recordStoreError(kind models.RecordKind) {
	if s.metrics != nil {
		s.metrics.RecordStoreError(string(kind))
	}
}

func (s *MonitoringService) notifyComputed(status models.QualityStatus) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifiers {
		n.NotifyIndexComputed(status)
	}
}

func (s *MonitoringService) notifyRejected(kind models.RecordKind, siteID string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifiers {
		n.NotifyIndexRejected(kind, siteID, err)
	}
}
