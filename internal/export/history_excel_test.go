package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateHistoryWorkbook(t *testing.T) {
	summary := &service.HistorySummary{
		Username:      "bob",
		Count:         2,
		Average:       101.5,
		Latest:        103,
		LastReadingAt: 1700000001,
		RiskLevel:     "High",
		Readings: []models.ReadingPoint{
			{Timestamp: 1700000000, HeartRate: 100},
			{Timestamp: 1700000001, HeartRate: 103},
		},
		LatestAssessment: &service.AssessmentResult{Score: 25, Tier: models.TierHigh},
	}

	b, err := GenerateHistoryWorkbook(summary, time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Readings", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Readings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ReadingsHeader, rows[0])
	assert.Equal(t, []string{"1700000000", "2023-11-14 22:13:20", "100"}, rows[1])
	assert.Equal(t, []string{"1700000001", "2023-11-14 22:13:21", "103"}, rows[2])

	sum, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Username", "bob"}, sum[0])
	assert.Equal(t, []string{"Readings", "2"}, sum[1])
	assert.Equal(t, []string{"Last Reading", "2023-11-14 22:13:21"}, sum[4])
	assert.Equal(t, []string{"Risk Level", "High"}, sum[5])
	assert.Equal(t, []string{"Latest Assessment Tier", "High"}, sum[7])
}

func TestGenerateHistoryWorkbook_Empty(t *testing.T) {
	b, err := GenerateHistoryWorkbook(&service.HistorySummary{Username: "dave", RiskLevel: service.RiskLevelUnknown}, time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Readings")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	sum, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Len(t, sum, 6)
	assert.Equal(t, []string{"Risk Level", "Unknown"}, sum[5])
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "heartpi_bob_20250102_030405.xlsx", FileName("bob", at))
}
