package paystack

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"simulation-server/internal/models"
)

// SignatureHeader - заголовок с HMAC-SHA512 подписью тела webhook.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess - событие успешного платежа.
const EventChargeSuccess = "charge.success"

// Event - событие webhook Paystack.
type Event struct {
	Event string          `json:"event"`
	Data  TransactionData `json:"data"`
	Raw   json.RawMessage `json:"-"`
}

// VerifySignature проверяет подпись тела запроса.
// Пустой секрет дает models.ErrWebhookNotConfigured, отсутствующая или неверная подпись models.ErrInvalidSignature.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return models.ErrWebhookNotConfigured
	}
	if signature == "" {
		return models.ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return models.ErrInvalidSignature
	}
	return nil
}

// Sign вычисляет подпись тела, как это делает Paystack.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseEvent разбирает тело webhook. Исходные данные события сохраняются в Raw.
func ParseEvent(body []byte) (*Event, error) {
	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook payload: %v", models.ErrBadRequest, err)
	}
	ev := &Event{Event: envelope.Event, Raw: envelope.Data}
	if len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		if err := json.Unmarshal(envelope.Data, &ev.Data); err != nil {
			return nil, fmt.Errorf("%w: invalid webhook data: %v", models.ErrBadRequest, err)
		}
	}
	return ev, nil
}

// Timestamp принимает время в виде RFC 3339 строки или unix-секунд.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

// Ptr возвращает nil для нулевого времени.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
