package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rpereza/hydro-back-sub001/internal/archive"
	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/services"
	"github.com/rpereza/hydro-back-sub001/internal/store"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// ConnectionStatus reports whether a transport is connected
type ConnectionStatus interface {
	IsConnected() bool
}

// ClientCounter reports how many realtime clients are connected
type ClientCounter interface {
	GetConnectedClientsCount() int
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	service *services.MonitoringService
	store   store.DataStore
	reports *services.ReportService
	clients ClientCounter
	mqtt    ConnectionStatus
	now     func() time.Time
}

// NewHandlers creates a new handlers instance. clients may be nil.
func NewHandlers(service *services.MonitoringService, reports *services.ReportService, clients ClientCounter) *Handlers {
	return &Handlers{
		service: service,
		store:   service.Store(),
		reports: reports,
		clients: clients,
		now:     time.Now,
	}
}

// SetMQTTStatus attaches the MQTT client so /stats can report its state
func (h *Handlers) SetMQTTStatus(status ConnectionStatus) {
	h.mqtt = status
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

// ComputeResponse is the result of a stateless ICA computation
type ComputeResponse struct {
	Measurements models.MeasurementsView `json:"measurements"`
	Index        *models.IndexView       `json:"index"`
}

// ComputeICA handles POST requests computing the ICA of a sample without storing it
func (h *Handlers) ComputeICA(w http.ResponseWriter, r *http.Request) {
	var input models.SampleInput
	if !h.decodeJSON(w, r, &input) {
		return
	}

	raw, err := input.ToRawSample()
	if err != nil {
		h.sendRequestError(w, err)
		return
	}

	set, err := h.service.Preview(raw)
	if err != nil {
		h.sendRequestError(w, err)
		return
	}
	result, err := models.NewIndexResult(set)
	if err != nil {
		h.sendErrorResponse(w, "Failed to quantize index", http.StatusInternalServerError)
		return
	}

	h.sendSuccessResponse(w, http.StatusOK, "", ComputeResponse{
		Measurements: models.NewMeasurementsView(raw),
		Index:        result.View(),
	})
}

// CreateFieldMonitoring handles POST requests storing a station sample
func (h *Handlers) CreateFieldMonitoring(w http.ResponseWriter, r *http.Request) {
	var request models.FieldMonitoringRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	record, err := request.ToRecord(h.now())
	if err != nil {
		h.sendRequestError(w, err)
		return
	}
	if err := h.service.RecordFieldMonitoring(record); err != nil {
		h.sendRequestError(w, err)
		return
	}

	h.sendSuccessResponse(w, http.StatusCreated, "Field monitoring recorded", record.View())
}

// GetFieldMonitorings lists field monitorings, by station or time range when requested
func (h *Handlers) GetFieldMonitorings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseLimit(query.Get("limit"))

	var records []models.FieldMonitoring
	switch {
	case query.Get("start") != "" || query.Get("end") != "":
		start, end, err := models.ParseTimeRange(query.Get("start"), query.Get("end"), h.now())
		if err != nil {
			h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		records = h.store.GetFieldMonitoringsInRange(start, end)
	case query.Get("station_id") != "":
		records = h.store.GetFieldMonitoringsByStation(query.Get("station_id"), limit)
	default:
		records = h.store.GetRecentFieldMonitorings(limit)
	}

	views := make([]models.FieldMonitoringView, 0, len(records))
	for i := range records {
		views = append(views, records[i].View())
	}
	h.sendSuccessResponse(w, http.StatusOK, "", views)
}

// GetLatestFieldMonitorings returns the newest record of every station
func (h *Handlers) GetLatestFieldMonitorings(w http.ResponseWriter, r *http.Request) {
	latest := h.store.GetLatestByStation()

	views := make(map[string]models.FieldMonitoringView, len(latest))
	for station, record := range latest {
		views[station] = record.View()
	}
	h.sendSuccessResponse(w, http.StatusOK, "", views)
}

// GetFieldMonitoring returns a single field monitoring
func (h *Handlers) GetFieldMonitoring(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	record, exists := h.store.GetFieldMonitoring(id)
	if !exists {
		h.sendErrorResponse(w, "Field monitoring not found", http.StatusNotFound)
		return
	}
	h.sendSuccessResponse(w, http.StatusOK, "", record.View())
}

// CreateDischargeMonitoring handles POST requests storing a discharge sample
func (h *Handlers) CreateDischargeMonitoring(w http.ResponseWriter, r *http.Request) {
	var request models.DischargeMonitoringRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	record, err := request.ToRecord(h.now())
	if err != nil {
		h.sendRequestError(w, err)
		return
	}
	if err := h.service.RecordDischargeMonitoring(record); err != nil {
		h.sendRequestError(w, err)
		return
	}

	h.sendSuccessResponse(w, http.StatusCreated, "Discharge monitoring recorded", record.View())
}

// GetDischargeMonitorings lists discharge monitorings, by point or time range when requested
func (h *Handlers) GetDischargeMonitorings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseLimit(query.Get("limit"))

	var records []models.DischargeMonitoring
	switch {
	case query.Get("start") != "" || query.Get("end") != "":
		start, end, err := models.ParseTimeRange(query.Get("start"), query.Get("end"), h.now())
		if err != nil {
			h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		records = h.store.GetDischargeMonitoringsInRange(start, end)
	case query.Get("point_id") != "":
		records = h.store.GetDischargeMonitoringsByPoint(query.Get("point_id"), limit)
	default:
		records = h.store.GetRecentDischargeMonitorings(limit)
	}

	views := make([]models.DischargeMonitoringView, 0, len(records))
	for i := range records {
		views = append(views, records[i].View())
	}
	h.sendSuccessResponse(w, http.StatusOK, "", views)
}

// GetDischargeMonitoring returns a single discharge monitoring
func (h *Handlers) GetDischargeMonitoring(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	record, exists := h.store.GetDischargeMonitoring(id)
	if !exists {
		h.sendErrorResponse(w, "Discharge monitoring not found", http.StatusNotFound)
		return
	}
	h.sendSuccessResponse(w, http.StatusOK, "", record.View())
}

// GetQualitySummary returns record counts per quality class
func (h *Handlers) GetQualitySummary(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, http.StatusOK, "", h.store.GetQualitySummary())
}

// GetSystemStats returns system statistics
func (h *Handlers) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	field, discharge := h.store.GetRecordCounts()
	stats := map[string]interface{}{
		"field_monitorings":     field,
		"discharge_monitorings": discharge,
		"database_ok":           h.store.Ping() == nil,
		"archive_enabled":       h.reports.ArchiveEnabled(),
		"server_time":           h.now().UTC(),
	}
	if h.clients != nil {
		stats["websocket_clients"] = h.clients.GetConnectedClientsCount()
	}
	if h.mqtt != nil {
		stats["mqtt_connected"] = h.mqtt.IsConnected()
	}

	h.sendSuccessResponse(w, http.StatusOK, "", stats)
}

// ExportICAExcel handles GET requests exporting the ICA report as a workbook
func (h *Handlers) ExportICAExcel(w http.ResponseWriter, r *http.Request) {
	start, end, err := models.ParseTimeRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), h.now())
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.reports.Workbook(start, end)
	if err != nil {
		log.Printf("❌ Failed to generate Excel export: %v", err)
		h.sendErrorResponse(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("ica_report_%s_to_%s.xlsx", start.Format("2006-01-02"), end.Format("2006-01-02"))
	w.Header().Set("Content-Type", archive.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(content)
}

// ExportICACSV handles GET requests exporting the ICA report as CSV
func (h *Handlers) ExportICACSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := models.ParseTimeRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), h.now())
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	content, err := h.reports.CSV(start, end)
	if err != nil {
		log.Printf("❌ Failed to generate CSV export: %v", err)
		h.sendErrorResponse(w, "Failed to generate CSV data", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("ica_report_%s_to_%s.csv", start.Format("2006-01-02"), end.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(content)
}

// ArchiveReport handles POST requests uploading the ICA report to the archive bucket
func (h *Handlers) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := models.ParseTimeRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), h.now())
	if err != nil {
		h.sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.reports.Archive(r.Context(), start, end)
	if errors.Is(err, services.ErrArchiveDisabled) {
		h.sendErrorResponse(w, "Report archive is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("❌ Failed to archive report: %v", err)
		h.sendErrorResponse(w, "Failed to archive report", http.StatusBadGateway)
		return
	}

	h.sendSuccessResponse(w, http.StatusCreated, "Report archived", result)
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendErrorResponse(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handlers) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.sendErrorResponse(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// parseLimit returns the requested limit, defaulting to 50
func parseLimit(s string) int {
	if limit, err := strconv.Atoi(s); err == nil && limit > 0 {
		return limit
	}
	return 50
}

// sendRequestError maps parsing, engine and storage failures to a response
func (h *Handlers) sendRequestError(w http.ResponseWriter, err error) {
	var fieldErr *models.FieldError
	switch {
	case errors.As(err, &fieldErr):
		h.sendErrorResponse(w, fieldErr.Error(), http.StatusBadRequest)
	case ica.IsComputeError(err):
		response := APIResponse{
			Success:   false,
			Error:     err.Error(),
			ErrorKind: ica.KindName(err),
		}
		h.writeJSON(w, http.StatusUnprocessableEntity, response)
	default:
		log.Printf("❌ Request failed: %v", err)
		h.sendErrorResponse(w, "Failed to process sample", http.StatusInternalServerError)
	}
}

// sendSuccessResponse sends a standardized success response
func (h *Handlers) sendSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	h.writeJSON(w, statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// sendErrorResponse sends a standardized error response
func (h *Handlers) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
