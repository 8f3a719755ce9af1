package billing

import (
	"encoding/json"
	"strings"
	"time"
)

// Stripe event types the engine knows about.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeFailed      = "charge.failed"
	EventDisputeCreated    = "charge.dispute.created"
	EventChargeRefunded    = "charge.refunded"
	EventChargeSucceeded   = "charge.succeeded"
)

// ObjectKind is the Stripe "object" discriminator of a resource.
type ObjectKind string

const (
	ObjectCheckoutSession ObjectKind = "checkout.session"
	ObjectCharge          ObjectKind = "charge"
	ObjectDispute         ObjectKind = "dispute"
	ObjectRefund          ObjectKind = "refund"
	ObjectInvoice         ObjectKind = "invoice"
	ObjectSubscription    ObjectKind = "subscription"
	ObjectPaymentIntent   ObjectKind = "payment_intent"
)

// ProviderObject is the subset of a Stripe resource the resolver walks: its
// metadata and the ids of the objects it links to.
type ProviderObject struct {
	ID              string            `json:"id"`
	Kind            ObjectKind        `json:"object"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	InvoiceID       string            `json:"invoice,omitempty"`
	SubscriptionID  string            `json:"subscription,omitempty"`
	PaymentIntentID string            `json:"payment_intent,omitempty"`
	ChargeID        string            `json:"charge,omitempty"`
}

// MetadataValue returns the trimmed metadata value for key.
func (o *ProviderObject) MetadataValue(key string) string {
	if o == nil || o.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(o.Metadata[key])
}

// Notification is an authenticated, decoded webhook delivery.
type Notification struct {
	ID        string
	Type      string
	CreatedAt time.Time
	Object    *ProviderObject
	Raw       []byte
}

// IsChargeLike reports whether the notification concerns a charge or an
// object hanging off a charge (dispute, refund).
func (n *Notification) IsChargeLike() bool {
	if strings.HasPrefix(n.Type, "charge.") {
		return true
	}
	if n.Object == nil {
		return false
	}
	switch n.Object.Kind {
	case ObjectCharge, ObjectDispute, ObjectRefund:
		return true
	}
	return false
}

// IsRefundLike reports whether the notification is about refunded money.
func (n *Notification) IsRefundLike() bool {
	return n.Type == EventChargeRefunded || strings.HasPrefix(n.Type, "refund.") ||
		strings.HasPrefix(n.Type, "charge.refund.") || (n.Object != nil && n.Object.Kind == ObjectRefund)
}

// EventRef identifies the event that triggers a transition.
type EventRef struct {
	ID            string
	Type          string
	OccurredAt    time.Time
	BillingPeriod string
}

// RefFromNotification builds the transition reference of a notification.
func RefFromNotification(n *Notification, metadataPeriodKey string) EventRef {
	ref := EventRef{ID: n.ID, Type: n.Type, OccurredAt: n.CreatedAt}
	if n.Object != nil {
		ref.BillingPeriod = n.Object.MetadataValue(metadataPeriodKey)
	}
	return ref
}

// Outcome summarizes what the receiver did with a delivery.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeNoop          Outcome = "noop"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeInformational Outcome = "informational"
	OutcomeUnresolved    Outcome = "unresolved"
)

// Ack is returned for every delivery that must be answered with 200.
type Ack struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	Outcome    Outcome     `json:"outcome"`
	ExternalID string      `json:"external_id,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
}

// wireObject mirrors the JSON of the Stripe objects we read. Link fields may
// be ids or expanded objects.
type wireObject struct {
	ID            string            `json:"id"`
	Object        string            `json:"object"`
	Metadata      map[string]string `json:"metadata"`
	Invoice       json.RawMessage   `json:"invoice"`
	Subscription  json.RawMessage   `json:"subscription"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Charge        json.RawMessage   `json:"charge"`
	Parent        *struct {
		SubscriptionDetails *struct {
			Subscription json.RawMessage `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// DecodeProviderObject decodes a Stripe resource into a ProviderObject.
func DecodeProviderObject(raw []byte) (*ProviderObject, error) {
	var w wireObject
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	obj := &ProviderObject{
		ID:              strings.TrimSpace(w.ID),
		Kind:            ObjectKind(strings.TrimSpace(w.Object)),
		Metadata:        w.Metadata,
		InvoiceID:       expandableID(w.Invoice),
		SubscriptionID:  expandableID(w.Subscription),
		PaymentIntentID: expandableID(w.PaymentIntent),
		ChargeID:        expandableID(w.Charge),
	}
	if obj.SubscriptionID == "" && w.Parent != nil && w.Parent.SubscriptionDetails != nil {
		obj.SubscriptionID = expandableID(w.Parent.SubscriptionDetails.Subscription)
	}
	return obj, nil
}

// expandableID reads a Stripe expandable field: a bare id string, an
// expanded object carrying an id, or null.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}
