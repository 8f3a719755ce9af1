package billing

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SubGate/app/models"
)

// Action is the state change a route applies.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionInform     Action = "inform"
)

// PeriodMetadataKey carries the billing period chosen at checkout.
const PeriodMetadataKey = "billing_period"

// HandlerFunc applies the transition for a resolved notification.
type HandlerFunc func(ctx context.Context, externalID string, n *Notification) (*Transition, error)

// Route binds a recognized event type to its handler. Informational routes
// have no handler.
type Route struct {
	EventType string
	Action    Action
	Reason    string
	handle    HandlerFunc
}

// Informational reports whether the route never changes state.
func (r Route) Informational() bool {
	return r.handle == nil
}

// Dispatcher maps event types to reconciliation handlers.
type Dispatcher struct {
	routes map[string]Route
}

// NewDispatcher builds the fixed route table over rec.
func NewDispatcher(rec *Reconciler) *Dispatcher {
	activate := func(ctx context.Context, externalID string, n *Notification) (*Transition, error) {
		t, err := rec.Activate(ctx, externalID, RefFromNotification(n, PeriodMetadataKey))
		if err != nil {
			return nil, err
		}
		if t.Skipped == "" {
			rec.WriteBack(ctx, externalID, n)
		}
		return t, nil
	}
	deactivate := func(reason string) HandlerFunc {
		return func(ctx context.Context, externalID string, n *Notification) (*Transition, error) {
			return rec.Deactivate(ctx, externalID, reason, RefFromNotification(n, PeriodMetadataKey))
		}
	}

	d := &Dispatcher{routes: make(map[string]Route)}
	d.add(Route{EventType: EventCheckoutCompleted, Action: ActionActivate, handle: activate})
	d.add(Route{EventType: EventChargeFailed, Action: ActionDeactivate, Reason: models.DeactivationFailedCharge, handle: deactivate(models.DeactivationFailedCharge)})
	d.add(Route{EventType: EventDisputeCreated, Action: ActionDeactivate, Reason: models.DeactivationDispute, handle: deactivate(models.DeactivationDispute)})
	d.add(Route{EventType: EventChargeRefunded, Action: ActionDeactivate, Reason: models.DeactivationRefund, handle: deactivate(models.DeactivationRefund)})
	d.add(Route{EventType: EventChargeSucceeded, Action: ActionInform})
	return d
}

func (d *Dispatcher) add(r Route) {
	d.routes[r.EventType] = r
}

// Classify returns the route for eventType and whether it is recognized.
func (d *Dispatcher) Classify(eventType string) (Route, bool) {
	r, ok := d.routes[eventType]
	return r, ok
}

// Dispatch runs the handler for eventType. Unknown and informational types
// return a nil transition and no error.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, externalID string, n *Notification) (*Transition, error) {
	r, ok := d.routes[eventType]
	if !ok {
		log.Warnf("[Billing] unhandled event type %s", eventType)
		return nil, nil
	}
	if r.Informational() {
		log.Infof("[Billing] %s for %s, no state change", eventType, externalID)
		return nil, nil
	}
	return r.handle(ctx, externalID, n)
}
