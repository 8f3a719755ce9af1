package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/SubGate/app/models"
)

func TestDispatcher_Classify(t *testing.T) {
	rec, _, _ := newTestReconciler(nil)
	d := NewDispatcher(rec)

	tests := []struct {
		eventType     string
		known         bool
		action        Action
		reason        string
		informational bool
	}{
		{eventType: EventCheckoutCompleted, known: true, action: ActionActivate},
		{eventType: EventChargeFailed, known: true, action: ActionDeactivate, reason: models.DeactivationFailedCharge},
		{eventType: EventDisputeCreated, known: true, action: ActionDeactivate, reason: models.DeactivationDispute},
		{eventType: EventChargeRefunded, known: true, action: ActionDeactivate, reason: models.DeactivationRefund},
		{eventType: EventChargeSucceeded, known: true, action: ActionInform, informational: true},
		{eventType: "customer.created", known: false},
		{eventType: "", known: false},
	}

	for _, tt := range tests {
		route, ok := d.Classify(tt.eventType)
		if ok != tt.known {
			t.Fatalf("Classify(%q) known = %v, want %v", tt.eventType, ok, tt.known)
		}
		if !ok {
			continue
		}
		assert.Equal(t, tt.action, route.Action, tt.eventType)
		assert.Equal(t, tt.reason, route.Reason, tt.eventType)
		assert.Equal(t, tt.informational, route.Informational(), tt.eventType)
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	rec, store, clock := newTestReconciler(nil)
	d := NewDispatcher(rec)
	ctx := context.Background()

	checkout := notification(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":       "cs_1",
		"object":   "checkout.session",
		"metadata": map[string]any{"telegram_id": "42", "billing_period": "daily"},
	})
	tr, err := d.Dispatch(ctx, checkout.Type, "42", checkout)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, ActionActivate, tr.Action)
	assert.True(t, tr.Changed)

	sub, err := store.GetByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.BillingPeriodDaily, sub.BillingPeriod)
	assert.True(t, sub.SubscribedUntil.Equal(clock.Now().Add(24*time.Hour)))

	succeeded := notification(t, "evt_2", EventChargeSucceeded, map[string]any{"id": "ch_1", "object": "charge"})
	tr, err = d.Dispatch(ctx, succeeded.Type, "42", succeeded)
	require.NoError(t, err)
	assert.Nil(t, tr)

	unknown := notification(t, "evt_3", "customer.subscription.trial_will_end", map[string]any{"id": "sub_1", "object": "subscription"})
	tr, err = d.Dispatch(ctx, unknown.Type, "42", unknown)
	require.NoError(t, err)
	assert.Nil(t, tr)

	refunded := notification(t, "evt_4", EventChargeRefunded, map[string]any{"id": "ch_1", "object": "charge"})
	tr, err = d.Dispatch(ctx, refunded.Type, "42", refunded)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, ActionDeactivate, tr.Action)
	assert.True(t, tr.Changed)

	sub, err = store.GetByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionInactive, sub.Status)
	assert.Equal(t, models.DeactivationRefund, sub.DeactivationReason)
}

func TestDispatcher_WriteBackOnlyWhenApplied(t *testing.T) {
	p := newFakeProvider().put(&ProviderObject{ID: "sub_1", Kind: ObjectSubscription})
	rec, _, _ := newTestReconciler(p)
	d := NewDispatcher(rec)
	n := notification(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":           "cs_1",
		"object":       "checkout.session",
		"subscription": "sub_1",
		"metadata":     map[string]any{"telegram_id": "42"},
	})

	_, err := d.Dispatch(context.Background(), n.Type, "42", n)
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), n.Type, "42", n)
	require.NoError(t, err)

	assert.Len(t, p.attached, 1)
	assert.Equal(t, 1, p.callCount(ObjectSubscription, "sub_1"))
}
