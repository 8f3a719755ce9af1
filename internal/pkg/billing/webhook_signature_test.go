package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := eventPayload(t, "evt_1", EventChargeSucceeded, time.Now(), map[string]any{"id": "ch_1", "object": "charge"})
	header := sign(payload, testWebhookSecret)

	require.NoError(t, VerifyStripeWebhookSignature(payload, header, testWebhookSecret, 0))

	tampered := []byte(header)
	tampered[len(tampered)-1] ^= 0x01
	err := VerifyStripeWebhookSignature(payload, string(tampered), testWebhookSecret, 0)
	assert.ErrorIs(t, err, ErrAuthentication)

	err = VerifyStripeWebhookSignature(append([]byte(" "), payload...), header, testWebhookSecret, 0)
	assert.ErrorIs(t, err, ErrAuthentication)

	err = VerifyStripeWebhookSignature(payload, header, "whsec_other", 0)
	assert.ErrorIs(t, err, ErrAuthentication)

	err = VerifyStripeWebhookSignature(payload, "", testWebhookSecret, 0)
	assert.ErrorIs(t, err, ErrAuthentication)

	err = VerifyStripeWebhookSignature(payload, header, "", 0)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, errors.Is(err, ErrAuthentication))
}

func TestParseNotification(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	payload := eventPayload(t, "evt_inv", "invoice.paid", created, map[string]any{
		"id":       "in_1",
		"object":   "invoice",
		"metadata": map[string]any{},
		"parent": map[string]any{
			"subscription_details": map[string]any{"subscription": "sub_9"},
		},
	})

	n, err := ParseNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_inv", n.ID)
	assert.Equal(t, "invoice.paid", n.Type)
	assert.True(t, n.CreatedAt.Equal(created))
	assert.Equal(t, ObjectInvoice, n.Object.Kind)
	assert.Equal(t, "sub_9", n.Object.SubscriptionID)
	assert.Equal(t, payload, n.Raw)
}

func TestParseNotification_ExpandedLinks(t *testing.T) {
	n := notification(t, "evt_ch", EventChargeFailed, map[string]any{
		"id":             "ch_1",
		"object":         "charge",
		"invoice":        map[string]any{"id": "in_7", "object": "invoice"},
		"payment_intent": "pi_3",
		"metadata":       map[string]any{"telegram_id": " 42 "},
	})
	assert.Equal(t, "in_7", n.Object.InvoiceID)
	assert.Equal(t, "pi_3", n.Object.PaymentIntentID)
	assert.Equal(t, "42", n.Object.MetadataValue("telegram_id"))
	assert.True(t, n.IsChargeLike())
	assert.False(t, n.IsRefundLike())
}

func TestParseNotification_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"id":`,
		"missing type":   `{"id":"evt_1","data":{"object":{"id":"ch_1"}}}`,
		"missing object": `{"id":"evt_1","type":"charge.failed","data":{}}`,
		"scalar object":  `{"id":"evt_1","type":"charge.failed","data":{"object":"ch_1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNotification([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrAuthentication))
	assert.False(t, IsRetryable(ErrMalformedPayload))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.True(t, IsRetryable(ErrResolution))
	assert.True(t, IsRetryable(ErrStore))
	assert.True(t, IsRetryable(ErrTimeout))
}
