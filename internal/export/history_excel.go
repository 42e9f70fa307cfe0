package export

import (
	"fmt"
	"time"

	"github.com/OlaWak/heartpi/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	readingsSheet = "Readings"
	summarySheet  = "Summary"
)

// ReadingsHeader column titles of the readings sheet
var ReadingsHeader = []string{"Timestamp", "Local Time", "Heart Rate (BPM)"}

// GenerateHistoryWorkbook renders a user's readings and summary as an xlsx file.
// loc formats the "Local Time" column; nil means time.Local.
func GenerateHistoryWorkbook(summary *service.HistorySummary, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(readingsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE2E2"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// readings
	for col, header := range ReadingsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(readingsSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(readingsSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(readingsSheet, "A", "A", 14); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(readingsSheet, "B", "C", 22); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, p := range summary.Readings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := []any{p.Timestamp, time.Unix(p.Timestamp, 0).In(loc).Format(time.DateTime), p.HeartRate}
		if err := f.SetSheetRow(readingsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write reading row %d: %w", i+2, err)
		}
	}

	// summary
	lastReading := ""
	if summary.Count > 0 {
		lastReading = time.Unix(summary.LastReadingAt, 0).In(loc).Format(time.DateTime)
	}
	rows := [][]any{
		{"Username", summary.Username},
		{"Readings", summary.Count},
		{"Average Heart Rate (BPM)", summary.Average},
		{"Latest Heart Rate (BPM)", summary.Latest},
		{"Last Reading", lastReading},
		{"Risk Level", summary.RiskLevel},
	}
	if a := summary.LatestAssessment; a != nil {
		rows = append(rows,
			[]any{"Latest Assessment Score", a.Score},
			[]any{"Latest Assessment Tier", a.Tier.String()},
		)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return nil, fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set summary style: %w", err)
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 26); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name for username's export.
func FileName(username string, at time.Time) string {
	return fmt.Sprintf("heartpi_%s_%s.xlsx", username, at.Format("20060102_150405"))
}
