package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/metrics"
)

// Reasons a transition left the record untouched.
const (
	SkipDuplicate       = "duplicate"
	SkipStale           = "stale"
	SkipAbsent          = "absent"
	SkipAlreadyInactive = "already_inactive"
)

// Transition describes the effect of one handler invocation.
type Transition struct {
	ExternalID      string                    `json:"external_id"`
	Action          Action                    `json:"action"`
	From            models.SubscriptionStatus `json:"from,omitempty"`
	To              models.SubscriptionStatus `json:"to,omitempty"`
	Created         bool                      `json:"created,omitempty"`
	Changed         bool                      `json:"changed"`
	Skipped         string                    `json:"skipped,omitempty"`
	SubscribedUntil *time.Time                `json:"subscribed_until,omitempty"`
}

func (t *Transition) result() string {
	if t.Changed {
		return "applied"
	}
	if t.Skipped != "" {
		return t.Skipped
	}
	return "noop"
}

// Reconciler owns every status write. Each action runs as one serialized
// read-modify-write on the subscriber record.
type Reconciler struct {
	store       repository.SubscriberRepository
	provider    Provider
	metadataKey string
	now         func() time.Time
}

// NewReconciler creates the handlers. provider is only used for the metadata
// write-back after activation and may be nil.
func NewReconciler(store repository.SubscriberRepository, provider Provider, metadataKey string) *Reconciler {
	if strings.TrimSpace(metadataKey) == "" {
		metadataKey = DefaultMetadataKey
	}
	return &Reconciler{
		store:       store,
		provider:    provider,
		metadataKey: metadataKey,
		now:         time.Now,
	}
}

// Activate upserts the record as active and extends access by one billing
// cycle from now.
func (r *Reconciler) Activate(ctx context.Context, externalID string, ev EventRef) (*Transition, error) {
	t := &Transition{ExternalID: strings.TrimSpace(externalID), Action: ActionActivate}
	now := r.now()
	sub, created, err := r.store.Update(ctx, t.ExternalID, true, func(sub *models.Subscriber) (bool, error) {
		t.From = sub.Status
		t.Changed, t.Skipped = applyActivate(sub, ev, now)
		return t.Changed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: activate %s: %v", ErrStore, t.ExternalID, err)
	}
	t.Created = created
	t.To = sub.Status
	t.SubscribedUntil = sub.SubscribedUntil
	r.record(t, ev)
	return t, nil
}

// Deactivate moves an active record to inactive. A missing record is a no-op.
func (r *Reconciler) Deactivate(ctx context.Context, externalID, reason string, ev EventRef) (*Transition, error) {
	t := &Transition{ExternalID: strings.TrimSpace(externalID), Action: ActionDeactivate}
	sub, _, err := r.store.Update(ctx, t.ExternalID, false, func(sub *models.Subscriber) (bool, error) {
		if sub != nil {
			t.From = sub.Status
		}
		t.Changed, t.Skipped = applyDeactivate(sub, reason, ev)
		return t.Changed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: deactivate %s: %v", ErrStore, t.ExternalID, err)
	}
	if sub != nil {
		t.To = sub.Status
		t.SubscribedUntil = sub.SubscribedUntil
	}
	r.record(t, ev)
	return t, nil
}

// ManualDeactivate revokes access on administrative request. It carries a
// fresh event id so it is never mistaken for a redelivery.
func (r *Reconciler) ManualDeactivate(ctx context.Context, externalID string) (*Transition, error) {
	return r.Deactivate(ctx, externalID, models.DeactivationManual, EventRef{
		ID:   "manual:" + uuid.NewString(),
		Type: "manual",
	})
}

// WriteBack copies the external id onto the subscription and payment intent
// created by a checkout, so later events on those objects resolve directly.
// Failures are logged only.
func (r *Reconciler) WriteBack(ctx context.Context, externalID string, n *Notification) {
	if r.provider == nil || n == nil || n.Object == nil {
		return
	}
	targets := []struct {
		kind ObjectKind
		id   string
	}{
		{ObjectSubscription, n.Object.SubscriptionID},
		{ObjectPaymentIntent, n.Object.PaymentIntentID},
	}
	for _, target := range targets {
		if target.id == "" {
			continue
		}
		obj, err := r.provider.Retrieve(ctx, target.kind, target.id)
		if err != nil {
			log.Warnf("[Billing] write-back: cannot load %s %s: %v", target.kind, target.id, err)
			continue
		}
		if obj.MetadataValue(r.metadataKey) != "" {
			continue
		}
		if err := r.provider.AttachMetadata(ctx, target.kind, target.id, r.metadataKey, externalID); err != nil {
			log.Warnf("[Billing] write-back: cannot tag %s %s: %v", target.kind, target.id, err)
		}
	}
}

func (r *Reconciler) record(t *Transition, ev EventRef) {
	metrics.TransitionsTotal.WithLabelValues(string(t.Action), t.result()).Inc()
	switch {
	case t.Changed:
		log.Infof("[Billing] %s %s: %s -> %s (event %s)", t.Action, t.ExternalID, t.From, t.To, ev.ID)
	case t.Skipped == SkipAbsent:
		log.Warnf("[Billing] %s %s: no subscriber record (event %s)", t.Action, t.ExternalID, ev.ID)
	default:
		log.Infof("[Billing] %s %s: unchanged (%s, event %s)", t.Action, t.ExternalID, t.result(), ev.ID)
	}
}

// applyActivate is the activate transition. It is total over existing
// records and a no-op for the event it already applied.
func applyActivate(sub *models.Subscriber, ev EventRef, now time.Time) (bool, string) {
	if sub == nil {
		return false, SkipAbsent
	}
	if isDuplicate(sub, ev) {
		return false, SkipDuplicate
	}
	if isStale(sub, ev) {
		return false, SkipStale
	}

	period, ok := models.ParseBillingPeriod(ev.BillingPeriod)
	if !ok {
		period, ok = models.ParseBillingPeriod(string(sub.BillingPeriod))
	}
	if !ok {
		period = models.DefaultBillingPeriod
	}
	until := now.Add(period.CycleLength())

	sub.Status = models.SubscriptionActive
	sub.BillingPeriod = period
	sub.SubscribedUntil = &until
	sub.DeactivationReason = ""
	markApplied(sub, ev)
	return true, ""
}

// applyDeactivate is the deactivate transition. Absent and inactive records
// are left alone.
func applyDeactivate(sub *models.Subscriber, reason string, ev EventRef) (bool, string) {
	if sub == nil {
		return false, SkipAbsent
	}
	if isDuplicate(sub, ev) {
		return false, SkipDuplicate
	}
	if isStale(sub, ev) {
		return false, SkipStale
	}
	if sub.Status != models.SubscriptionActive {
		return false, SkipAlreadyInactive
	}

	sub.Status = models.SubscriptionInactive
	sub.DeactivationReason = reason
	markApplied(sub, ev)
	return true, ""
}

func isDuplicate(sub *models.Subscriber, ev EventRef) bool {
	return ev.ID != "" && ev.ID == sub.LastEventID
}

// isStale reports an event older than the last one applied. Events without a
// provider timestamp are never stale.
func isStale(sub *models.Subscriber, ev EventRef) bool {
	return !ev.OccurredAt.IsZero() && sub.LastEventAt != nil && ev.OccurredAt.Before(*sub.LastEventAt)
}

func markApplied(sub *models.Subscriber, ev EventRef) {
	if ev.ID != "" {
		sub.LastEventID = ev.ID
	}
	if !ev.OccurredAt.IsZero() {
		at := ev.OccurredAt
		sub.LastEventAt = &at
	}
}
