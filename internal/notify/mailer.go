package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OlaWak/heartpi/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no mail transport has been set up.
var ErrNotConfigured = errors.New("mail transport not configured")

// Message is one outgoing caregiver e-mail.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer posts messages to a mail gateway, authenticating with the sender account.
type HTTPMailer struct {
	httpClient *resty.Client
	from       string
	logger     *zap.Logger
}

type gatewayResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func NewHTTPMailer(cfg config.MailConfig, logger *zap.Logger) *HTTPMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetBasicAuth(cfg.SenderEmail, cfg.AppPassword).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPMailer{httpClient: client, from: cfg.SenderEmail, logger: logger}
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if m.httpClient.BaseURL == "" {
		return ErrNotConfigured
	}
	if msg.From == "" {
		msg.From = m.from
	}

	var out gatewayResponse
	resp, err := m.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&out).
		SetError(&out).
		Post("/send")
	if err != nil {
		m.logger.Error("Mail gateway call failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("failed to call mail gateway: %w", err)
	}
	if resp.IsError() {
		m.logger.Error("Mail gateway rejected message",
			zap.String("to", msg.To),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", out.Error),
		)
		return fmt.Errorf("mail gateway error: %s (status: %d)", out.Error, resp.StatusCode())
	}

	m.logger.Info("Caregiver email sent", zap.String("to", msg.To), zap.String("message_id", out.ID))
	return nil
}

// Publisher is the subset of the MQTT client used for alerts.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTMailer hands messages to a broker topic for an external mail bridge.
type MQTTMailer struct {
	pub    Publisher
	topic  string
	qos    byte
	from   string
	logger *zap.Logger
}

func NewMQTTMailer(pub Publisher, topic string, qos byte, from string, logger *zap.Logger) *MQTTMailer {
	return &MQTTMailer{pub: pub, topic: topic, qos: qos, from: from, logger: logger}
}

func (m *MQTTMailer) Send(_ context.Context, msg Message) error {
	if m.pub == nil {
		return ErrNotConfigured
	}
	if msg.From == "" {
		msg.From = m.from
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := m.pub.Publish(m.topic, m.qos, false, payload); err != nil {
		m.logger.Error("Failed to publish caregiver alert", zap.String("topic", m.topic), zap.Error(err))
		return err
	}
	m.logger.Info("Caregiver alert published", zap.String("topic", m.topic), zap.String("to", msg.To))
	return nil
}
