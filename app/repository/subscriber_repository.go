package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/SubGate/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriberRepository implements the SubscriberRepository interface
type subscriberRepository struct {
	db *gorm.DB
}

// NewSubscriberRepository creates a new subscriber repository instance
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

// GetByExternalID retrieves a subscriber by the external user id
func (r *subscriberRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.WithContext(ctx).Where("external_id = ?", strings.TrimSpace(externalID)).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriberNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Ensure creates an inactive record when none exists. It never touches an
// existing record and reports whether a row was inserted.
func (r *subscriberRepository) Ensure(ctx context.Context, externalID string) (*models.Subscriber, bool, error) {
	seed := models.NewSubscriber(externalID)
	if err := seed.Validate(); err != nil {
		return nil, false, err
	}

	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(seed)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	var stored models.Subscriber
	if err := db.Where("external_id = ?", seed.ExternalID).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, tx.RowsAffected > 0, nil
}

// Update locks the row for externalID inside a transaction and applies fn.
// With create set, a missing row is inserted first so the lock always has a
// target; the insert is rolled back together with any error from fn.
func (r *subscriberRepository) Update(ctx context.Context, externalID string, create bool, fn MutateFunc) (*models.Subscriber, bool, error) {
	id := strings.TrimSpace(externalID)
	var (
		out     *models.Subscriber
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if create {
			seed := models.NewSubscriber(id)
			if err := seed.Validate(); err != nil {
				return err
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "external_id"}},
				DoNothing: true,
			}).Create(seed)
			if res.Error != nil {
				return res.Error
			}
			created = res.RowsAffected > 0
		}

		var sub models.Subscriber
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_id = ?", id).
			First(&sub).Error
		current := &sub
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			current = nil
		}

		changed, err := fn(current)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		if changed {
			if err := tx.Save(current).Error; err != nil {
				return err
			}
		}
		out = current.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// List returns subscribers, optionally filtered by status
func (r *subscriberRepository) List(ctx context.Context, status models.SubscriptionStatus, offset, limit int) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	q := r.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&subs).Error
	return subs, err
}

// Count returns the number of subscribers, optionally filtered by status
func (r *subscriberRepository) Count(ctx context.Context, status models.SubscriptionStatus) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Subscriber{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}
