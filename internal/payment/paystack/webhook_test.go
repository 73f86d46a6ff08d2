package paystack

import (
	"testing"
	"time"

	"simulation-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	valid := Sign("whsec", body)

	assert.NoError(t, VerifySignature("whsec", body, valid))
	assert.ErrorIs(t, VerifySignature("", body, valid), models.ErrWebhookNotConfigured)
	assert.ErrorIs(t, VerifySignature("whsec", body, ""), models.ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("other", body, valid), models.ErrInvalidSignature)
	// Подпись считается от точных байтов тела
	assert.ErrorIs(t, VerifySignature("whsec", []byte(`{"event": "charge.success"}`), valid), models.ErrInvalidSignature)
}

func TestParseEvent(t *testing.T) {
	t.Run("charge.success с unix paid_at", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"r1","amount":1000,"currency":"NGN","paid_at":1767348000,"customer":{"email":"x@y.z"},"metadata":{"plan_code":"basic"}}}`))
		require.NoError(t, err)
		assert.Equal(t, EventChargeSuccess, ev.Event)
		assert.Equal(t, "r1", ev.Data.Reference)
		assert.Equal(t, time.Unix(1767348000, 0).UTC(), ev.Data.PaidAt.Time)
		require.NotNil(t, ev.Data.PlanCode())
		assert.Equal(t, "basic", *ev.Data.PlanCode())
		assert.NotEmpty(t, ev.Raw)
	})

	t.Run("metadata строкой и пустой paid_at", func(t *testing.T) {
		ev, err := ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"r2","metadata":"","paid_at":null}}`))
		require.NoError(t, err)
		assert.Nil(t, ev.Data.PlanCode())
		assert.Nil(t, ev.Data.PaidAt.Ptr())
	})

	t.Run("невалидный JSON", func(t *testing.T) {
		_, err := ParseEvent([]byte(`not json`))
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}
