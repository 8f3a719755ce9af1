package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeSignatureHeader carries the webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// VerifyStripeWebhookSignature checks the Stripe-Signature header against the
// endpoint secret. A zero tolerance uses the Stripe default of five minutes.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration) error {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return fmt.Errorf("%w: missing signature header", ErrAuthentication)
	}
	if secret == "" {
		return fmt.Errorf("%w: webhook secret", ErrNotConfigured)
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, sig, secret, tolerance); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return nil
}

type wireEvent struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseNotification decodes a verified Stripe event body.
func ParseNotification(payload []byte) (*Notification, error) {
	var ev wireEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	eventType := strings.TrimSpace(ev.Type)
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}
	raw := strings.TrimSpace(string(ev.Data.Object))
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("%w: missing data.object", ErrMalformedPayload)
	}
	obj, err := DecodeProviderObject(ev.Data.Object)
	if err != nil {
		return nil, fmt.Errorf("%w: data.object: %v", ErrMalformedPayload, err)
	}

	n := &Notification{
		ID:     strings.TrimSpace(ev.ID),
		Type:   eventType,
		Object: obj,
		Raw:    payload,
	}
	if ev.Created > 0 {
		n.CreatedAt = time.Unix(ev.Created, 0).UTC()
	}
	return n, nil
}

// PeekEventType reads only the event type of a payload, "unknown" when it
// cannot be decoded. Use it on authenticated payloads only.
func PeekEventType(payload []byte) string {
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil || strings.TrimSpace(ev.Type) == "" {
		return "unknown"
	}
	return strings.TrimSpace(ev.Type)
}
