package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rpereza/hydro-back-sub001/internal/archive"
	"github.com/rpereza/hydro-back-sub001/internal/export"
	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/store"
)

// ErrArchiveDisabled is returned when no archive bucket is configured
var ErrArchiveDisabled = errors.New("report archive is not configured")

// ArchiveResult describes an uploaded report
type ArchiveResult struct {
	Key                  string    `json:"key"`
	URI                  string    `json:"uri"`
	From                 time.Time `json:"from"`
	To                   time.Time `json:"to"`
	FieldMonitorings     int       `json:"field_monitorings"`
	DischargeMonitorings int       `json:"discharge_monitorings"`
	Size                 int       `json:"size_bytes"`
}

// ReportService builds ICA reports from stored records
type ReportService struct {
	store    store.DataStore
	exporter *export.ExportService
	uploader archive.Uploader
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewReportService creates a report service. uploader and collector may be nil.
func NewReportService(dataStore store.DataStore, uploader archive.Uploader, collector *metrics.Collector) *ReportService {
	return &ReportService{
		store:    dataStore,
		exporter: export.NewExportService(),
		uploader: uploader,
		metrics:  collector,
		now:      time.Now,
	}
}

// ArchiveEnabled reports whether reports can be uploaded
func (r *ReportService) ArchiveEnabled() bool {
	return r.uploader != nil
}

// BuildExportData collects the records sampled in [start, end]. The quality
// distribution counts only those records.
func (r *ReportService) BuildExportData(start, end time.Time) export.ExportData {
	return r.exportData(r.store.GetFieldMonitoringsInRange(start, end),
		r.store.GetDischargeMonitoringsInRange(start, end), start, end)
}

func (r *ReportService) exportData(field []models.FieldMonitoring, discharges []models.DischargeMonitoring, start, end time.Time) export.ExportData {
	summary := models.NewQualitySummary()
	for _, m := range field {
		if m.Index != nil {
			summary.Add(models.KindFieldMonitoring, m.Index.QualityClass)
		}
	}
	for _, d := range discharges {
		if d.Index != nil {
			summary.Add(models.KindDischargeMonitoring, d.Index.QualityClass)
		}
	}

	return export.ExportData{
		FieldMonitorings:     field,
		DischargeMonitorings: discharges,
		Summary:              summary,
		ExportMetadata: export.ExportMetadata{
			GeneratedAt: r.now().UTC(),
			From:        start,
			To:          end,
		},
	}
}

// Workbook renders the Excel report for [start, end]
func (r *ReportService) Workbook(start, end time.Time) ([]byte, error) {
	return r.exporter.GenerateExcelBytes(r.BuildExportData(start, end))
}

// CSV renders the CSV report for [start, end]
func (r *ReportService) CSV(start, end time.Time) ([]byte, error) {
	return r.exporter.GenerateCSVBytes(r.BuildExportData(start, end))
}

// Archive renders the workbook of the records sampled in [start, end] and uploads it
func (r *ReportService) Archive(ctx context.Context, start, end time.Time) (*ArchiveResult, error) {
	if r.uploader == nil {
		return nil, ErrArchiveDisabled
	}
	return r.upload(ctx, r.BuildExportData(start, end))
}

// ArchiveIngested uploads the workbook of the records stored in (after, until],
// whatever their sampling time. Consecutive windows never overlap.
func (r *ReportService) ArchiveIngested(ctx context.Context, after, until time.Time) (*ArchiveResult, error) {
	if r.uploader == nil {
		return nil, ErrArchiveDisabled
	}
	return r.upload(ctx, r.exportData(r.store.GetFieldMonitoringsIngestedBetween(after, until),
		r.store.GetDischargeMonitoringsIngestedBetween(after, until), after, until))
}

func (r *ReportService) upload(ctx context.Context, data export.ExportData) (*ArchiveResult, error) {
	start, end := data.ExportMetadata.From, data.ExportMetadata.To
	content, err := r.exporter.GenerateExcelBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	key := r.uploader.ReportKey(data.ExportMetadata.GeneratedAt)
	uri, err := r.uploader.Upload(ctx, key, content, archive.ContentTypeXLSX)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ArchivedReports.Inc()
	}

	log.Printf("💾 Archived ICA report %s (%d field, %d discharge records)",
		uri, len(data.FieldMonitorings), len(data.DischargeMonitorings))

	return &ArchiveResult{
		Key:                  key,
		URI:                  uri,
		From:                 start,
		To:                   end,
		FieldMonitorings:     len(data.FieldMonitorings),
		DischargeMonitorings: len(data.DischargeMonitorings),
		Size:                 len(content),
	}, nil
}
