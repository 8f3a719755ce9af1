package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/SubGate/app/models"
	"gorm.io/gorm"
)

// ErrSubscriberNotFound is returned when no record exists for an external id.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// ErrWebhookEventNotFound is returned when marking an unknown ledger entry.
var ErrWebhookEventNotFound = errors.New("webhook event not found")

// MutateFunc receives the locked record for an external id, or nil when the
// record is absent and creation was not requested. It reports whether the
// record changed and must be written back.
type MutateFunc func(sub *models.Subscriber) (bool, error)

// SubscriberRepository is the durable keyed store of subscription state.
// Update serializes read-modify-write cycles per external id.
type SubscriberRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Subscriber, error)
	Ensure(ctx context.Context, externalID string) (*models.Subscriber, bool, error)
	Update(ctx context.Context, externalID string, create bool, fn MutateFunc) (*models.Subscriber, bool, error)
	List(ctx context.Context, status models.SubscriptionStatus, offset, limit int) ([]models.Subscriber, error)
	Count(ctx context.Context, status models.SubscriptionStatus) (int64, error)
}

// WebhookEventRepository persists webhook deliveries idempotently.
type WebhookEventRepository interface {
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, externalID, processingError string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Subscriber   SubscriberRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new repositories instance backed by GORM
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Subscriber:   NewSubscriberRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

// NewMemoryRepositories creates process-local repositories, used for
// development without MySQL and in tests.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Subscriber:   NewMemorySubscriberRepository(),
		WebhookEvent: NewMemoryWebhookEventRepository(),
	}
}
