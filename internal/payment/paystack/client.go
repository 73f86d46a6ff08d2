// Package paystack - HTTP-клиент Paystack и проверка webhook-подписей.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"simulation-server/internal/models"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.paystack.co"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 500 * time.Millisecond
)

// Config содержит настройки клиента Paystack.
type Config struct {
	BaseURL      string
	SecretKey    string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration // Пауза перед повтором: RetryBackoff * номер попытки
}

// APIError - ответ Paystack с кодом 4xx/5xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return models.ErrPaymentProvider
}

// Client вызывает Paystack REST API с повтором при сетевых ошибках и ответах 5xx.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создает клиент Paystack. Незаданные параметры берутся по умолчанию.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("PaystackClient"),
	}
}

// InitializeRequest - параметры инициализации транзакции. Amount указывается в kobo.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Metadata    map[string]any `json:"metadata"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// InitializeResult - данные ответа /transaction/initialize.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Customer - покупатель в ответах Paystack.
type Customer struct {
	Email string `json:"email"`
}

// TransactionData - данные транзакции из /transaction/verify и событий webhook.
type TransactionData struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	PaidAt    Timestamp       `json:"paid_at"`
	Customer  Customer        `json:"customer"`
	Metadata  json.RawMessage `json:"metadata"`
}

// PlanCode извлекает код тарифа из metadata (plan_code или plan_id).
// Paystack может прислать metadata пустой строкой, это не ошибка.
func (d *TransactionData) PlanCode() *string {
	var meta map[string]any
	if len(d.Metadata) == 0 || json.Unmarshal(d.Metadata, &meta) != nil {
		return nil
	}
	for _, key := range []string{"plan_code", "plan_id"} {
		if v, ok := meta[key].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction создает транзакцию и возвращает ссылку на оплату.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	var result InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyTransaction запрашивает актуальный статус транзакции.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*TransactionData, error) {
	var result TransactionData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal paystack request: %w", err)
		}
	}
	endpoint := c.cfg.BaseURL + path
	log := c.logger.With(zap.String("method", method), zap.String("path", path))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		env, err := c.attempt(ctx, method, endpoint, payload)
		if err == nil {
			if out != nil && len(env.Data) > 0 {
				if err := json.Unmarshal(env.Data, out); err != nil {
					return fmt.Errorf("%w: failed to decode response data: %v", models.ErrPaymentProvider, err)
				}
			}
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			log.Warn("Paystack rejected request", zap.Int("status_code", apiErr.StatusCode), zap.String("message", apiErr.Message))
			return err
		}
		log.Warn("Paystack request failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == c.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: request to paystack failed after %d attempts: %v", models.ErrPaymentProvider, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte) (*envelope, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read paystack response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", decodeErr)
	}
	if !env.Status {
		return nil, &APIError{StatusCode: http.StatusUnprocessableEntity, Message: env.Message}
	}
	return &env, nil
}
