package billing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_StrategyOrder(t *testing.T) {
	r := NewResolver(newFakeProvider(), "")
	assert.Equal(t, []string{"direct_metadata", "charge_invoice", "invoice_subscription", "payment_intent", "refund_charge"}, r.Strategies())
}

func TestResolver_DirectMetadata(t *testing.T) {
	p := newFakeProvider()
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":       "cs_1",
		"object":   "checkout.session",
		"metadata": map[string]any{"telegram_id": "42"},
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Empty(t, p.calls)
}

func TestResolver_SkipsOverlongIDs(t *testing.T) {
	overlong := strings.Repeat("9", 65)
	p := newFakeProvider().put(&ProviderObject{ID: "in_1", Kind: ObjectInvoice, Metadata: map[string]string{"telegram_id": "42"}})
	r := NewResolver(p, DefaultMetadataKey)

	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":       "ch_1",
		"object":   "charge",
		"invoice":  "in_1",
		"metadata": map[string]any{"telegram_id": overlong},
	})
	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	n = notification(t, "evt_2", EventCheckoutCompleted, map[string]any{
		"id":       "cs_1",
		"object":   "checkout.session",
		"metadata": map[string]any{"telegram_id": overlong},
	})
	_, err = r.Resolve(context.Background(), n)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_ChargeInvoiceMetadata(t *testing.T) {
	p := newFakeProvider().put(&ProviderObject{ID: "in_1", Kind: ObjectInvoice, Metadata: map[string]string{"telegram_id": "42"}})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":      "ch_1",
		"object":  "charge",
		"invoice": "in_1",
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestResolver_InvoiceSubscription(t *testing.T) {
	p := newFakeProvider().
		put(&ProviderObject{ID: "in_1", Kind: ObjectInvoice, SubscriptionID: "sub_1"}).
		put(&ProviderObject{ID: "sub_1", Kind: ObjectSubscription, Metadata: map[string]string{"telegram_id": "77"}})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":      "ch_1",
		"object":  "charge",
		"invoice": "in_1",
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "77", id)
}

func TestResolver_PaymentIntent(t *testing.T) {
	p := newFakeProvider().
		put(&ProviderObject{ID: "pi_1", Kind: ObjectPaymentIntent, Metadata: map[string]string{"telegram_id": "5"}})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":             "ch_1",
		"object":         "charge",
		"payment_intent": "pi_1",
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "5", id)
}

func TestResolver_RefundViaCharge(t *testing.T) {
	p := newFakeProvider().
		put(&ProviderObject{ID: "ch_1", Kind: ObjectCharge, PaymentIntentID: "pi_1"}).
		put(&ProviderObject{ID: "pi_1", Kind: ObjectPaymentIntent, Metadata: map[string]string{"telegram_id": "9"}})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", "charge.refund.updated", map[string]any{
		"id":     "re_1",
		"object": "refund",
		"charge": "ch_1",
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "9", id)
	assert.Equal(t, 1, p.callCount(ObjectCharge, "ch_1"))
}

func TestResolver_DisputeViaCharge(t *testing.T) {
	p := newFakeProvider().
		put(&ProviderObject{ID: "ch_1", Kind: ObjectCharge, Metadata: map[string]string{"telegram_id": "11"}})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventDisputeCreated, map[string]any{
		"id":     "dp_1",
		"object": "dispute",
		"charge": "ch_1",
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "11", id)
}

func TestResolver_CustomMetadataKey(t *testing.T) {
	r := NewResolver(newFakeProvider(), "user_id")
	n := notification(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":       "cs_1",
		"object":   "checkout.session",
		"metadata": map[string]any{"telegram_id": "42", "user_id": "u-1"},
	})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
}

func TestResolver_Exhausted(t *testing.T) {
	p := newFakeProvider().
		put(&ProviderObject{ID: "in_1", Kind: ObjectInvoice}).
		put(&ProviderObject{ID: "pi_1", Kind: ObjectPaymentIntent})
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":             "ch_1",
		"object":         "charge",
		"invoice":        "in_1",
		"payment_intent": "pi_1",
	})

	_, err := r.Resolve(context.Background(), n)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrResolution))
}

func TestResolver_MissingObjectIsDeadEnd(t *testing.T) {
	r := NewResolver(newFakeProvider(), DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":      "ch_1",
		"object":  "charge",
		"invoice": "in_gone",
	})

	_, err := r.Resolve(context.Background(), n)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolver_ProviderFailure(t *testing.T) {
	p := newFakeProvider().fail(ObjectInvoice, "in_1", errors.New("connection reset"))
	r := NewResolver(p, DefaultMetadataKey)
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{
		"id":      "ch_1",
		"object":  "charge",
		"invoice": "in_1",
	})

	_, err := r.Resolve(context.Background(), n)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
	assert.Contains(t, err.Error(), "charge_invoice")
	assert.True(t, IsRetryable(err))
}

func TestResolver_CustomChain(t *testing.T) {
	var seen []string
	step := func(name, result string) ResolveStrategy {
		return ResolveStrategy{Name: name, Resolve: func(context.Context, *Notification) (string, error) {
			seen = append(seen, name)
			return result, nil
		}}
	}
	r := NewResolverWithStrategies(step("a", ""), step("b", " 3 "), step("c", "4"))
	n := notification(t, "evt_1", EventChargeFailed, map[string]any{"id": "ch_1", "object": "charge"})

	id, err := r.Resolve(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, "3", id)
	assert.Equal(t, []string{"a", "b"}, seen)
}
