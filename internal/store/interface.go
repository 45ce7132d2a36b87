package store

import (
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/models"
)

// DataStore defines the interface for data storage operations
type DataStore interface {
	// Health check
	Ping() error

	// Field monitoring samples
	AddFieldMonitoring(*models.FieldMonitoring) error
	GetFieldMonitoring(id int64) (*models.FieldMonitoring, bool)
	GetRecentFieldMonitorings(limit int) []models.FieldMonitoring
	GetFieldMonitoringsByStation(stationID string, limit int) []models.FieldMonitoring
	GetFieldMonitoringsInRange(start, end time.Time) []models.FieldMonitoring
	GetFieldMonitoringsIngestedBetween(after, until time.Time) []models.FieldMonitoring
	GetLatestByStation() map[string]models.FieldMonitoring

	// Discharge monitoring samples
	AddDischargeMonitoring(*models.DischargeMonitoring) error
	GetDischargeMonitoring(id int64) (*models.DischargeMonitoring, bool)
	GetRecentDischargeMonitorings(limit int) []models.DischargeMonitoring
	GetDischargeMonitoringsByPoint(pointID string, limit int) []models.DischargeMonitoring
	GetDischargeMonitoringsInRange(start, end time.Time) []models.DischargeMonitoring
	GetDischargeMonitoringsIngestedBetween(after, until time.Time) []models.DischargeMonitoring

	GetQualitySummary() models.QualitySummary
	GetRecordCounts() (field int, discharge int)
}
