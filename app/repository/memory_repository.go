package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/SubGate/app/models"
)

// MemorySubscriberRepository keeps subscribers in process memory. Writers for
// the same external id are serialized by a per-key mutex.
type MemorySubscriberRepository struct {
	mu     sync.RWMutex
	items  map[string]*models.Subscriber
	locks  map[string]*sync.Mutex
	nextID uint
}

// NewMemorySubscriberRepository creates an empty in-memory subscriber store.
func NewMemorySubscriberRepository() *MemorySubscriberRepository {
	return &MemorySubscriberRepository{
		items: make(map[string]*models.Subscriber),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *MemorySubscriberRepository) keyLock(externalID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[externalID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[externalID] = l
	}
	return l
}

func (r *MemorySubscriberRepository) load(externalID string) *models.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[externalID].Clone()
}

func (r *MemorySubscriberRepository) store(sub *models.Subscriber) *models.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if sub.ID == 0 {
		r.nextID++
		sub.ID = r.nextID
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	r.items[sub.ExternalID] = sub.Clone()
	return sub.Clone()
}

func (r *MemorySubscriberRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := r.load(strings.TrimSpace(externalID))
	if sub == nil {
		return nil, ErrSubscriberNotFound
	}
	return sub, nil
}

func (r *MemorySubscriberRepository) Ensure(ctx context.Context, externalID string) (*models.Subscriber, bool, error) {
	return r.Update(ctx, externalID, true, func(*models.Subscriber) (bool, error) {
		return false, nil
	})
}

func (r *MemorySubscriberRepository) Update(ctx context.Context, externalID string, create bool, fn MutateFunc) (*models.Subscriber, bool, error) {
	id := strings.TrimSpace(externalID)
	l := r.keyLock(id)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	current := r.load(id)
	created := false
	if current == nil && create {
		current = models.NewSubscriber(id)
		if err := current.Validate(); err != nil {
			return nil, false, err
		}
		created = true
	}

	changed, err := fn(current)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, nil
	}
	if changed || created {
		return r.store(current), created, nil
	}
	return current, false, nil
}

func (r *MemorySubscriberRepository) List(ctx context.Context, status models.SubscriptionStatus, offset, limit int) ([]models.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]models.Subscriber, 0, len(r.items))
	for _, sub := range r.items {
		if status != "" && sub.Status != status {
			continue
		}
		out = append(out, *sub.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []models.Subscriber{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemorySubscriberRepository) Count(ctx context.Context, status models.SubscriptionStatus) (int64, error) {
	subs, err := r.List(ctx, status, 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(subs)), nil
}

// MemoryWebhookEventRepository is the in-memory webhook ledger.
type MemoryWebhookEventRepository struct {
	mu     sync.Mutex
	byKey  map[string]*models.BillingWebhookEvent
	byID   map[uint]*models.BillingWebhookEvent
	nextID uint
}

// NewMemoryWebhookEventRepository creates an empty in-memory ledger.
func NewMemoryWebhookEventRepository() *MemoryWebhookEventRepository {
	return &MemoryWebhookEventRepository{
		byKey: make(map[string]*models.BillingWebhookEvent),
		byID:  make(map[uint]*models.BillingWebhookEvent),
	}
}

func (r *MemoryWebhookEventRepository) CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := event.Provider + "\x00" + event.ProviderEventID
	if stored, ok := r.byKey[key]; ok {
		cp := *stored
		return false, &cp, nil
	}

	r.nextID++
	stored := *event
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.byKey[key] = &stored
	r.byID[stored.ID] = &stored

	cp := stored
	return true, &cp, nil
}

func (r *MemoryWebhookEventRepository) MarkProcessed(ctx context.Context, id uint, externalID, processingError string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return ErrWebhookEventNotFound
	}
	now := time.Now()
	stored.ProcessedAt = &now
	stored.ProcessingError = processingError
	stored.Attempts++
	stored.UpdatedAt = now
	if externalID != "" {
		stored.ExternalID = externalID
	}
	return nil
}

// Get returns a copy of a stored event, mainly for assertions.
func (r *MemoryWebhookEventRepository) Get(provider, providerEventID string) (*models.BillingWebhookEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byKey[provider+"\x00"+providerEventID]
	if !ok {
		return nil, false
	}
	cp := *stored
	return &cp, true
}
