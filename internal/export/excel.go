package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

const (
	ThingsSheet      = "Things"
	DatastreamsSheet = "Datastreams"
)

// ThingsHeader is the header row of the Things sheet.
var ThingsHeader = []string{
	"Run ID",
	"Lang",
	"Translated",
	"Thing ID",
	"Name",
	"Description",
	"Datastreams",
	"Properties",
}

// DatastreamsHeader is the header row of the Datastreams sheet.
var DatastreamsHeader = []string{
	"Lang",
	"Thing ID",
	"Datastream ID",
	"Name",
	"Description",
	"Unit",
	"Unit Symbol",
	"Observation Type",
	"Sensor ID",
	"Sensor Name",
	"Encoding Type",
	"Observed Property",
}

var (
	thingsWidths      = []float64{38, 8, 12, 10, 30, 50, 12, 50}
	datastreamsWidths = []float64{8, 10, 14, 30, 50, 20, 12, 30, 10, 30, 20, 30}
)

// ExcelExporter writes harvest records to an .xlsx workbook on disk.
type ExcelExporter struct {
	path   string
	logger *zap.Logger
}

// NewExcelExporter creates an exporter writing to path.
func NewExcelExporter(path string, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{
		path:   path,
		logger: logger,
	}
}

// Export replaces the workbook at the configured path.
func (e *ExcelExporter) Export(ctx context.Context, records []models.HarvestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := GenerateWorkbook(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.path, err)
	}

	e.logger.Info("Exported harvest workbook",
		zap.String("path", e.path),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// GenerateWorkbook renders records into a workbook with one row per Thing
// record and one row per Datastream.
func GenerateWorkbook(records []models.HarvestRecord) ([]byte, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", ThingsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DatastreamsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	thingRows := make([][]interface{}, 0, len(records))
	var dsRows [][]interface{}
	for _, rec := range records {
		props, err := jsonCell(rec.Thing.Properties)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("thing %d: %w", rec.Thing.ID, err)
		}
		thingRows = append(thingRows, []interface{}{
			rec.RunID,
			rec.Lang,
			yesNo(rec.Translated),
			rec.Thing.ID,
			rec.Thing.Name,
			rec.Thing.Description,
			len(rec.Thing.Datastreams),
			props,
		})

		for _, ds := range rec.Thing.Datastreams {
			observed := ""
			if ds.ObservedProperty != nil {
				observed = ds.ObservedProperty.Name
			}
			dsRows = append(dsRows, []interface{}{
				rec.Lang,
				rec.Thing.ID,
				ds.ID,
				ds.Name,
				ds.Description,
				stringField(ds.UnitOfMeasurement, "name"),
				stringField(ds.UnitOfMeasurement, "symbol"),
				ds.ObservationType,
				ds.Sensor.ID,
				ds.Sensor.Name,
				ds.Sensor.EncodingType,
				observed,
			})
		}
	}

	if err := writeSheet(f, ThingsSheet, ThingsHeader, thingsWidths, headerStyle, thingRows); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSheet(f, DatastreamsSheet, DatastreamsHeader, datastreamsWidths, headerStyle, dsRows); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, widths []float64, headerStyle int, rows [][]interface{}) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, values := range rows {
		for colIdx, value := range values {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func jsonCell(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(b), nil
}

func stringField(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
