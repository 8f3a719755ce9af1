package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/metrics"
)

// Reason explains an access decision.
type Reason string

const (
	ReasonActive   Reason = "active"
	ReasonOverride Reason = "override"
	ReasonInactive Reason = "inactive"
	ReasonUnknown  Reason = "unknown"
)

// SubscriberReader is the read side of the subscriber store. The gate never
// needs more than this.
type SubscriberReader interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Subscriber, error)
}

// Decision is the outcome of an access check.
type Decision struct {
	ExternalID      string     `json:"external_id"`
	Allowed         bool       `json:"allowed"`
	Reason          Reason     `json:"reason"`
	Status          string     `json:"status,omitempty"`
	SubscribedUntil *time.Time `json:"subscribed_until,omitempty"`
}

// Gate decides per request whether a user may use the paid feature. It only
// reads local state: the subscriber store and the override set.
type Gate struct {
	subscribers SubscriberReader
	overrides   OverrideStore
}

// NewGate creates an access gate. A nil override store disables overrides.
func NewGate(subscribers SubscriberReader, overrides OverrideStore) *Gate {
	return &Gate{subscribers: subscribers, overrides: overrides}
}

// Check returns the full decision. A store error is returned together with a
// deny decision.
func (g *Gate) Check(ctx context.Context, externalID string) (Decision, error) {
	id := strings.TrimSpace(externalID)
	d := Decision{ExternalID: id, Reason: ReasonUnknown}
	if id == "" {
		return d, nil
	}

	sub, err := g.subscribers.GetByExternalID(ctx, id)
	switch {
	case err == nil:
		d.Status = string(sub.Status)
		d.SubscribedUntil = sub.SubscribedUntil
		d.Reason = ReasonInactive
		if sub.IsActive() {
			d.Allowed = true
			d.Reason = ReasonActive
			return d, nil
		}
	case errors.Is(err, repository.ErrSubscriberNotFound):
	default:
		return d, err
	}

	if g.overrides != nil {
		ok, err := g.overrides.Contains(ctx, id)
		if err != nil {
			return d, err
		}
		if ok {
			d.Allowed = true
			d.Reason = ReasonOverride
		}
	}
	return d, nil
}

// IsAllowed reports whether externalID may proceed. Errors fail closed.
func (g *Gate) IsAllowed(ctx context.Context, externalID string) bool {
	d, err := g.Check(ctx, externalID)
	if err != nil {
		log.Errorf("[Gate] access check for %s failed: %v", externalID, err)
		metrics.AccessDecisionsTotal.WithLabelValues("error").Inc()
		return false
	}
	metrics.AccessDecisionsTotal.WithLabelValues(string(d.Reason)).Inc()
	return d.Allowed
}
