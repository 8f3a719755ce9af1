package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Billing provider constants used across billing-related models.
const (
	BillingProviderStripe = "stripe"
)

// SubscriptionStatus is the authoritative access state of a subscriber.
type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
)

// BillingPeriod is the cycle chosen at checkout.
type BillingPeriod string

const (
	BillingPeriodDaily      BillingPeriod = "daily"
	BillingPeriodMonthly    BillingPeriod = "monthly"
	BillingPeriodBiAnnually BillingPeriod = "bi-annually"
	BillingPeriodAnnually   BillingPeriod = "annually"
)

// DefaultBillingPeriod is used when neither the checkout nor the record names a period.
const DefaultBillingPeriod = BillingPeriodMonthly

// Reasons recorded when a subscriber is moved to inactive.
const (
	DeactivationFailedCharge = "failed_charge"
	DeactivationDispute      = "dispute"
	DeactivationRefund       = "refund"
	DeactivationManual       = "manual"
)

// BillingPeriods lists all supported periods in display order.
func BillingPeriods() []BillingPeriod {
	return []BillingPeriod{BillingPeriodDaily, BillingPeriodMonthly, BillingPeriodBiAnnually, BillingPeriodAnnually}
}

// ParseBillingPeriod normalizes user or provider input. The second return is
// false for unknown values.
func ParseBillingPeriod(raw string) (BillingPeriod, bool) {
	p := strings.ToLower(strings.TrimSpace(raw))
	p = strings.ReplaceAll(p, "_", "-")
	switch p {
	case "daily", "day":
		return BillingPeriodDaily, true
	case "monthly", "month":
		return BillingPeriodMonthly, true
	case "bi-annually", "biannually", "semi-annually", "half-year":
		return BillingPeriodBiAnnually, true
	case "annually", "yearly", "year":
		return BillingPeriodAnnually, true
	default:
		return "", false
	}
}

// CycleLength returns the access window granted by one successful payment.
func (p BillingPeriod) CycleLength() time.Duration {
	switch p {
	case BillingPeriodDaily:
		return 24 * time.Hour
	case BillingPeriodBiAnnually:
		return 182 * 24 * time.Hour
	case BillingPeriodAnnually:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// MaxExternalIDLength matches the external_id column width.
const MaxExternalIDLength = 64

// ValidExternalID reports whether id fits the external_id column.
func ValidExternalID(id string) bool {
	return id != "" && len(id) <= MaxExternalIDLength
}

// Subscriber is the per-user subscription record keyed by the external
// (Telegram) user id. Status is only written by the reconciliation handlers.
type Subscriber struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	ExternalID         string             `gorm:"type:varchar(64);not null;uniqueIndex:ux_subscribers_external_id" json:"external_id" validate:"required,max=64"`
	Status             SubscriptionStatus `gorm:"type:varchar(16);not null;default:'inactive';index" json:"status" validate:"oneof=inactive active"`
	SubscribedUntil    *time.Time         `gorm:"type:timestamp;default:null" json:"subscribed_until,omitempty"`
	BillingPeriod      BillingPeriod      `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_period" validate:"oneof=daily monthly bi-annually annually"`
	DeactivationReason string             `gorm:"type:varchar(32);default:''" json:"deactivation_reason,omitempty"`
	LastEventID        string             `gorm:"type:varchar(191);default:''" json:"last_event_id,omitempty"`
	LastEventAt        *time.Time         `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewSubscriber returns an inactive record for a user seen for the first time.
func NewSubscriber(externalID string) *Subscriber {
	return &Subscriber{
		ExternalID:    strings.TrimSpace(externalID),
		Status:        SubscriptionInactive,
		BillingPeriod: DefaultBillingPeriod,
	}
}

func (s *Subscriber) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// IsActive reports whether the record currently grants access.
func (s *Subscriber) IsActive() bool {
	return s != nil && s.Status == SubscriptionActive
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (s *Subscriber) Clone() *Subscriber {
	if s == nil {
		return nil
	}
	out := *s
	if s.SubscribedUntil != nil {
		t := *s.SubscribedUntil
		out.SubscribedUntil = &t
	}
	if s.LastEventAt != nil {
		t := *s.LastEventAt
		out.LastEventAt = &t
	}
	return &out
}
