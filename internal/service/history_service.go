package service

import (
	"context"
	"strings"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/repository"

	"go.uber.org/zap"
)

// Average heart-rate cut-offs for the history risk level.
const (
	historyModerateAvg = 80.0
	historyHighAvg     = 100.0
)

// RiskLevelUnknown is reported when a user has no readings.
const RiskLevelUnknown = "Unknown"

// HistorySummary aggregates a user's stored heart-rate readings.
type HistorySummary struct {
	Username         string                `json:"username"`
	Count            int                   `json:"count"`
	Average          float64               `json:"average"`
	Latest           float64               `json:"latest"`
	LastReadingAt    int64                 `json:"last_reading_at"`
	RiskLevel        string                `json:"risk_level"`
	Readings         []models.ReadingPoint `json:"readings,omitempty"`
	LatestAssessment *AssessmentResult     `json:"latest_assessment,omitempty"`
}

type HistoryService interface {
	// Summary reads every stored reading of username; withReadings keeps the raw series for charts.
	Summary(ctx context.Context, username string, withReadings bool) (*HistorySummary, error)
}

type historyService struct {
	records     repository.RecordStore
	assessments AssessmentService
	logger      *zap.Logger
}

// NewHistoryService assessments may be nil when no latest-assessment cache is wired.
func NewHistoryService(records repository.RecordStore, assessments AssessmentService, logger *zap.Logger) HistoryService {
	return &historyService{records: records, assessments: assessments, logger: logger}
}

func (s *historyService) Summary(ctx context.Context, username string, withReadings bool) (*HistorySummary, error) {
	out := &HistorySummary{Username: strings.TrimSpace(username)}

	var sum float64
	for p, err := range s.records.ReadingsFor(ctx, username) {
		if err != nil {
			return nil, err
		}
		sum += p.HeartRate
		out.Count++
		out.Latest = p.HeartRate
		out.LastReadingAt = p.Timestamp
		if withReadings {
			out.Readings = append(out.Readings, p)
		}
	}
	if out.Count > 0 {
		out.Average = sum / float64(out.Count)
	}
	out.RiskLevel = RiskLevelForAverage(out.Average, out.Count)

	if s.assessments != nil {
		latest, err := s.assessments.Latest(ctx, username)
		if err != nil {
			s.logger.Warn("Latest assessment unavailable", zap.String("username", username), zap.Error(err))
		}
		out.LatestAssessment = latest
	}
	return out, nil
}

// RiskLevelForAverage classifies an average heart rate: <80 Low, <100 Moderate, else High.
func RiskLevelForAverage(avg float64, count int) string {
	switch {
	case count == 0:
		return RiskLevelUnknown
	case avg < historyModerateAvg:
		return models.TierLow.String()
	case avg < historyHighAvg:
		return models.TierModerate.String()
	default:
		return models.TierHigh.String()
	}
}

func normalizeKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
