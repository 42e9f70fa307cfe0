package models

import (
	"fmt"
	"strings"
)

// RiskTier is the 3-level classification derived from a risk score.
type RiskTier int

const (
	TierLow RiskTier = iota
	TierModerate
	TierHigh
)

// Score thresholds: Low < ModerateThreshold <= Moderate < HighThreshold <= High.
const (
	ModerateThreshold = 10
	HighThreshold     = 18
)

func (t RiskTier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierModerate:
		return "Moderate"
	case TierHigh:
		return "High"
	default:
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
}

// Message is the result text shown after a survey submission.
func (t RiskTier) Message() string {
	switch t {
	case TierHigh:
		return "High risk of heart disease."
	case TierModerate:
		return "Moderate risk of heart disease."
	default:
		return "Low risk of heart disease. You are healthy!"
	}
}

func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(b []byte) error {
	tier, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseRiskTier accepts "low", "moderate" or "high" in any case.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TierLow, nil
	case "moderate":
		return TierModerate, nil
	case "high":
		return TierHigh, nil
	}
	return TierLow, NewValidationError("tier", fmt.Sprintf("unknown risk tier %q", s))
}

// Readings is one simulated physiological sample.
type Readings struct {
	HeartRate   float64 `json:"heart_rate"`
	SystolicBP  float64 `json:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp"`
	Cholesterol float64 `json:"cholesterol"`
	ECG         float64 `json:"ecg"`
}

// ReadingPoint is a stored heart-rate sample (one ReadingRow without the username).
type ReadingPoint struct {
	Timestamp int64   `json:"timestamp"`
	HeartRate float64 `json:"heart_rate"`
}

// RecordKind distinguishes the two row shapes of the record store.
type RecordKind int

const (
	RecordCredential RecordKind = iota + 1
	RecordReading
)

// Record is one raw row of the record store. Only the fields of its Kind are set.
type Record struct {
	Kind      RecordKind
	Username  string
	Password  string
	Timestamp int64
	HeartRate float64
}
