package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/xuri/excelize/v2"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Sheet names of the generated workbook
const (
	SheetSummary      = "Summary"
	SheetField        = "Field Monitoring"
	SheetDischarges   = "Discharges"
	SheetDistribution = "Quality Distribution"
)

// ExportService handles ICA report generation
type ExportService struct{}

// NewExportService creates a new export service instance
func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportData represents data to be exported
type ExportData struct {
	FieldMonitorings     []models.FieldMonitoring
	DischargeMonitorings []models.DischargeMonitoring
	Summary              models.QualitySummary
	ExportMetadata       ExportMetadata
}

// ExportMetadata contains information about the export
type ExportMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
}

// DateRange renders the exported period
func (m ExportMetadata) DateRange() string {
	return fmt.Sprintf("%s to %s", m.From.Format(timeLayout), m.To.Format(timeLayout))
}

// GenerateExcel creates an ICA workbook. The caller must Close the returned file.
func (es *ExportService) GenerateExcel(data ExportData) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set document properties
	if err := f.SetDocProps(&excelize.DocProperties{
		Category:       "Water Quality Monitoring",
		Created:        data.ExportMetadata.GeneratedAt.Format(time.RFC3339),
		Creator:        "Hydro Backend",
		Description:    "Water quality index (ICA) of field and discharge monitoring samples",
		LastModifiedBy: "Hydro Backend",
		Modified:       data.ExportMetadata.GeneratedAt.Format(time.RFC3339),
		Subject:        "Water Quality Index",
		Title:          "ICA Report",
		Version:        "1.0",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	steps := []func(*excelize.File, ExportData) error{
		es.createSummarySheet,
		es.createFieldSheet,
		es.createDischargeSheet,
		es.createDistributionSheet,
	}
	for _, step := range steps {
		if err := step(f, data); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Set active sheet to Summary
	f.SetActiveSheet(0)

	return f, nil
}

// GenerateExcelBytes renders the workbook to memory
func (es *ExportService) GenerateExcelBytes(data ExportData) ([]byte, error) {
	f, err := es.GenerateExcel(data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("⚠️  Failed to close workbook: %v", err)
		}
	}()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func headerStyle(f *excelize.File, color string, size float64) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: size, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
}

// writeTable writes a styled header row followed by data rows
func writeTable(f *excelize.File, sheet, color string, headers []string, rows [][]interface{}) error {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}

	style, err := headerStyle(f, color, 11)
	if err != nil {
		return fmt.Errorf("failed to create %s style: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// createSummarySheet creates the summary overview sheet
func (es *ExportService) createSummarySheet(f *excelize.File, data ExportData) error {
	sheetName := SheetSummary
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	titleStyle, err := headerStyle(f, "4472C4", 14)
	if err != nil {
		return fmt.Errorf("failed to create summary style: %w", err)
	}

	// Title
	f.SetCellValue(sheetName, "A1", "Water Quality Index Report")
	f.MergeCell(sheetName, "A1", "D1")
	f.SetCellStyle(sheetName, "A1", "D1", titleStyle)
	f.SetRowHeight(sheetName, 1, 25)

	// Export metadata
	f.SetCellValue(sheetName, "A3", "Generated At:")
	f.SetCellValue(sheetName, "B3", data.ExportMetadata.GeneratedAt.Format(timeLayout))
	f.SetCellValue(sheetName, "A4", "Date Range:")
	f.SetCellValue(sheetName, "B4", data.ExportMetadata.DateRange())

	// Statistics
	f.SetCellValue(sheetName, "A6", "Statistics")
	f.SetCellStyle(sheetName, "A6", "A6", titleStyle)
	f.SetCellValue(sheetName, "A7", "Field Monitorings:")
	f.SetCellValue(sheetName, "B7", len(data.FieldMonitorings))
	f.SetCellValue(sheetName, "A8", "Discharge Monitorings:")
	f.SetCellValue(sheetName, "B8", len(data.DischargeMonitorings))
	f.SetCellValue(sheetName, "A9", "Mean Field ICA:")
	f.SetCellValue(sheetName, "B9", meanComposite(fieldComposites(data.FieldMonitorings)))
	f.SetCellValue(sheetName, "A10", "Mean Discharge ICA:")
	f.SetCellValue(sheetName, "B10", meanComposite(dischargeComposites(data.DischargeMonitorings)))

	// Column widths
	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "D", 18)

	return nil
}

var indexHeaders = []string{"IOD", "ISST", "IDQO", "ICE", "IPH", "N/P Ratio", "INP", "Variables", "ICA", "Quality"}

func indexCells(idx *models.IndexResult) []interface{} {
	if idx == nil {
		return make([]interface{}, len(indexHeaders))
	}
	return []interface{}{
		decimalCell(idx.OxygenIndex),
		decimalCell(idx.SolidsIndex),
		decimalCell(idx.DemandIndex),
		decimalCell(idx.ConductivityIndex),
		decimalCell(idx.AcidityIndex),
		decimalCell(idx.NutrientRatio),
		decimalCell(idx.NutrientIndex),
		idx.VariableCount,
		decimalCell(idx.CompositeCoefficient),
		idx.QualityClass.String(),
	}
}

func rawCells(src ica.Source) []interface{} {
	return []interface{}{
		decimalCell(src.DissolvedOxygen()),
		decimalCell(src.SuspendedSolids()),
		decimalCell(src.ChemicalOxygenDemand()),
		decimalCell(src.Conductivity()),
		decimalCell(src.Acidity()),
		decimalCell(src.Nitrogen()),
		decimalCell(src.Phosphorus()),
	}
}

var rawHeaders = []string{"OD (%)", "SST (mg/L)", "DQO (mg/L)", "CE (µS/cm)", "pH", "N (mg/L)", "P (mg/L)"}

// createFieldSheet creates the field monitoring sheet
func (es *ExportService) createFieldSheet(f *excelize.File, data ExportData) error {
	sheetName := SheetField
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create field sheet: %w", err)
	}

	headers := append([]string{"ID", "Station", "Sampled At"}, rawHeaders...)
	headers = append(headers, indexHeaders...)

	rows := make([][]interface{}, 0, len(data.FieldMonitorings))
	for i := range data.FieldMonitorings {
		m := &data.FieldMonitorings[i]
		row := []interface{}{m.ID, m.StationID, m.SampledAt.Format(timeLayout)}
		row = append(row, rawCells(m)...)
		row = append(row, indexCells(m.Index)...)
		rows = append(rows, row)
	}

	if err := writeTable(f, sheetName, "70AD47", headers, rows); err != nil {
		return err
	}

	// Format columns
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "C", 20)
	return nil
}

// createDischargeSheet creates the discharge monitoring sheet
func (es *ExportService) createDischargeSheet(f *excelize.File, data ExportData) error {
	sheetName := SheetDischarges
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create discharge sheet: %w", err)
	}

	headers := append([]string{"ID", "Discharge Point", "Permit", "Campaign", "Sampled At", "Flow (L/s)"}, rawHeaders...)
	headers = append(headers, indexHeaders...)

	rows := make([][]interface{}, 0, len(data.DischargeMonitorings))
	for i := range data.DischargeMonitorings {
		d := &data.DischargeMonitorings[i]
		row := []interface{}{d.ID, d.DischargePointID, d.PermitNumber, d.CampaignYear,
			d.SampledAt.Format(timeLayout), decimalCell(d.FlowRate)}
		row = append(row, rawCells(d)...)
		row = append(row, indexCells(d.Index)...)
		rows = append(rows, row)
	}

	if err := writeTable(f, sheetName, "C55A11", headers, rows); err != nil {
		return err
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "E", 18)
	return nil
}

// createDistributionSheet creates the quality class distribution sheet
func (es *ExportService) createDistributionSheet(f *excelize.File, data ExportData) error {
	sheetName := SheetDistribution
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create distribution sheet: %w", err)
	}

	headers := []string{"Quality Class", "Field Monitorings", "Discharge Monitorings"}
	rows := make([][]interface{}, 0, len(ica.QualityClasses))
	for _, class := range ica.QualityClasses {
		name := class.String()
		rows = append(rows, []interface{}{name, data.Summary.FieldMonitorings[name], data.Summary.DischargeMonitorings[name]})
	}

	if err := writeTable(f, sheetName, "7030A0", headers, rows); err != nil {
		return err
	}

	f.SetColWidth(sheetName, "A", "C", 22)
	return nil
}

// GenerateCSV creates CSV rows for field and discharge monitorings
func (es *ExportService) GenerateCSV(data ExportData) ([][]string, error) {
	// CSV headers
	records := [][]string{
		{"Kind", "ID", "Site", "Sampled At", "OD", "SST", "DQO", "CE", "pH", "N", "P",
			"IOD", "ISST", "IDQO", "ICE", "IPH", "RNP", "INP", "Variables", "ICA", "Quality"},
	}

	for i := range data.FieldMonitorings {
		m := &data.FieldMonitorings[i]
		records = append(records, csvRow(models.KindFieldMonitoring, m.ID, m.StationID, m.SampledAt, m, m.Index))
	}
	for i := range data.DischargeMonitorings {
		d := &data.DischargeMonitorings[i]
		records = append(records, csvRow(models.KindDischargeMonitoring, d.ID, d.DischargePointID, d.SampledAt, d, d.Index))
	}

	return records, nil
}

func csvRow(kind models.RecordKind, id int64, site string, at time.Time, src ica.Source, idx *models.IndexResult) []string {
	row := []string{
		string(kind),
		strconv.FormatInt(id, 10),
		site,
		at.UTC().Format(time.RFC3339),
		ica.Format(src.DissolvedOxygen()),
		ica.Format(src.SuspendedSolids()),
		ica.Format(src.ChemicalOxygenDemand()),
		ica.Format(src.Conductivity()),
		ica.Format(src.Acidity()),
		ica.Format(src.Nitrogen()),
		ica.Format(src.Phosphorus()),
	}
	if idx == nil {
		return append(row, make([]string, 10)...)
	}
	return append(row,
		ica.Format(idx.OxygenIndex),
		ica.Format(idx.SolidsIndex),
		ica.Format(idx.DemandIndex),
		ica.Format(idx.ConductivityIndex),
		ica.Format(idx.AcidityIndex),
		ica.Format(idx.NutrientRatio),
		ica.Format(idx.NutrientIndex),
		strconv.Itoa(idx.VariableCount),
		ica.Format(idx.CompositeCoefficient),
		idx.QualityClass.String(),
	)
}

// WriteCSV writes CSV data to a writer
func (es *ExportService) WriteCSV(w *csv.Writer, records [][]string) error {
	return w.WriteAll(records)
}

// GenerateCSVBytes renders the CSV export to memory
func (es *ExportService) GenerateCSVBytes(data ExportData) ([]byte, error) {
	records, err := es.GenerateCSV(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := es.WriteCSV(csv.NewWriter(&buf), records); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// decimalCell converts a decimal to a numeric cell value, or "" when absent
func decimalCell(d *apd.Decimal) interface{} {
	if d == nil {
		return ""
	}
	f, err := d.Float64()
	if err != nil {
		return ica.Format(d)
	}
	return f
}

func fieldComposites(records []models.FieldMonitoring) []*apd.Decimal {
	out := make([]*apd.Decimal, 0, len(records))
	for _, r := range records {
		if r.Index != nil {
			out = append(out, r.Index.CompositeCoefficient)
		}
	}
	return out
}

func dischargeComposites(records []models.DischargeMonitoring) []*apd.Decimal {
	out := make([]*apd.Decimal, 0, len(records))
	for _, r := range records {
		if r.Index != nil {
			out = append(out, r.Index.CompositeCoefficient)
		}
	}
	return out
}

// meanComposite averages composites to 2 places, or "n/a" for an empty set
func meanComposite(values []*apd.Decimal) string {
	if len(values) == 0 {
		return "n/a"
	}
	ctx := apd.BaseContext.WithPrecision(16)
	sum := new(apd.Decimal)
	for _, v := range values {
		if _, err := ctx.Add(sum, sum, v); err != nil {
			return "n/a"
		}
	}
	mean := new(apd.Decimal)
	if _, err := ctx.Quo(mean, sum, apd.New(int64(len(values)), 0)); err != nil {
		return "n/a"
	}
	q, err := ica.Quantize(mean, models.CompositePlaces)
	if err != nil {
		return "n/a"
	}
	return ica.Format(q)
}
