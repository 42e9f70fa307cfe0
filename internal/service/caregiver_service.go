package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/OlaWak/heartpi/internal/models"
	"github.com/OlaWak/heartpi/internal/notify"

	"go.uber.org/zap"
)

// ErrAlertNotSent wraps transport failures when delivering a caregiver alert.
var ErrAlertNotSent = errors.New("alert not sent")

const (
	alertSubject     = "HeartPi Alert"
	lastReadingTimes = "2006-01-02 15:04:05"
)

type CaregiverService interface {
	// ComposeAlert builds the e-mail for summary without sending it.
	ComposeAlert(summary *HistorySummary, recipient string) notify.Message

	// SendAlert summarises username's readings and mails them to recipient.
	SendAlert(ctx context.Context, username, recipient string) (*notify.Message, error)
}

type caregiverService struct {
	history HistoryService
	mailer  notify.Mailer
	loc     *time.Location
	logger  *zap.Logger
}

// NewCaregiverService loc is the zone used for "Last Reading"; nil means time.Local.
func NewCaregiverService(history HistoryService, mailer notify.Mailer, loc *time.Location, logger *zap.Logger) CaregiverService {
	if loc == nil {
		loc = time.Local
	}
	return &caregiverService{history: history, mailer: mailer, loc: loc, logger: logger}
}

func (s *caregiverService) SendAlert(ctx context.Context, username, recipient string) (*notify.Message, error) {
	// 1. validate recipient
	addr, err := parseRecipient(recipient)
	if err != nil {
		return nil, err
	}

	// 2. summarise readings
	summary, err := s.history.Summary(ctx, username, false)
	if err != nil {
		return nil, err
	}

	// 3. compose and hand off
	msg := s.ComposeAlert(summary, addr)
	if s.mailer == nil {
		return nil, fmt.Errorf("%w: %w", ErrAlertNotSent, notify.ErrNotConfigured)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Caregiver alert failed",
			zap.String("username", summary.Username),
			zap.String("recipient", addr),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrAlertNotSent, err)
	}

	s.logger.Info("Caregiver alert sent",
		zap.String("username", summary.Username),
		zap.String("recipient", addr),
		zap.String("risk_level", summary.RiskLevel),
	)
	return &msg, nil
}

func (s *caregiverService) ComposeAlert(summary *HistorySummary, recipient string) notify.Message {
	user := summary.Username

	subject := alertSubject
	if summary.RiskLevel == models.TierHigh.String() {
		subject = "🚨 HIGH RISK DETECTED, PLEASE CHECK UP ON " + user + "'s HEART HEALTH IMMEDIATELY! 🚨"
	}

	var b strings.Builder
	b.WriteString("😊 Hi there!\n\n")
	b.WriteString(user + " trusted you with their HeartPi data. Here are their recent readings:\n\n")
	if summary.Count > 0 {
		b.WriteString("Average Heart Rate: " + bpm(summary.Average) + " BPM\n")
		b.WriteString("Latest Heart Rate: " + bpm(summary.Latest) + " BPM\n")
		b.WriteString("Last Reading: " + time.Unix(summary.LastReadingAt, 0).In(s.loc).Format(lastReadingTimes) + "\n")
		b.WriteString("Risk Level: " + summary.RiskLevel + "\n\n")
	} else {
		b.WriteString("No heart rate data available.\n\n")
	}
	b.WriteString("User " + user + " wanted to share this data with you because they trust you 💖.\n")
	b.WriteString("\nSent with ❤️ from HeartPi.")

	return notify.Message{To: recipient, Subject: subject, Body: b.String()}
}

func parseRecipient(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", models.NewValidationError("recipient", "required")
	}
	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return "", models.NewValidationError("recipient", "not a valid e-mail address")
	}
	return addr.Address, nil
}

func bpm(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
