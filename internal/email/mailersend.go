// Package email - отправка транзакционных писем через MailerSend и их шаблоны.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"simulation-server/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultMailerSendURL = "https://api.mailersend.com/v1/email"
	DefaultTimeout       = 30 * time.Second
)

// Message - одно письмо одному получателю.
type Message struct {
	To      string
	Name    string
	Subject string
	HTML    string
}

// Sender отправляет письма.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MailerSendConfig - настройки клиента MailerSend.
type MailerSendConfig struct {
	URL         string
	APIKey      string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailerSendRequest struct {
	From    address   `json:"from"`
	To      []address `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
}

// MailerSendClient отправляет письма через HTTP API MailerSend.
type MailerSendClient struct {
	cfg        MailerSendConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Sender = (*MailerSendClient)(nil)

// NewMailerSendClient создает клиент MailerSend.
func NewMailerSendClient(cfg MailerSendConfig, logger *zap.Logger) *MailerSendClient {
	if cfg.URL == "" {
		cfg.URL = DefaultMailerSendURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := logger.Named("MailerSendClient")
	if cfg.APIKey == "" {
		log.Warn("MailerSend API key is not set, email delivery will fail")
	}
	return &MailerSendClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}
}

// Send отправляет письмо. Успехом считаются ответы 200 и 202.
func (c *MailerSendClient) Send(ctx context.Context, msg Message) error {
	name := msg.Name
	if name == "" {
		name = msg.To
	}
	payload, err := json.Marshal(mailerSendRequest{
		From:    address{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		To:      []address{{Email: msg.To, Name: name}},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	log := c.logger.With(zap.String("subject", msg.Subject))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("MailerSend request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrEmailDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error("MailerSend rejected email", zap.Int("status_code", resp.StatusCode), zap.String("body", string(body)))
		return fmt.Errorf("%w: mailersend returned status %d: %s", models.ErrEmailDelivery, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	log.Debug("Email sent", zap.Int("status_code", resp.StatusCode))
	return nil
}
