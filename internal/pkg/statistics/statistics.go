package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/SubGate/app/models"
)

const (
	CacheKeySubscribers = "statistics:subscribers"
	CacheExpiration     = 5 * time.Minute
)

// SubscriberCounter counts subscriber records; an empty status counts all.
type SubscriberCounter interface {
	Count(ctx context.Context, status models.SubscriptionStatus) (int64, error)
}

// OverrideLister lists the override set.
type OverrideLister interface {
	List(ctx context.Context) ([]string, error)
}

// Data is the subscriber overview shown to operators.
type Data struct {
	TotalSubscribers    int64     `json:"total_subscribers"`
	ActiveSubscribers   int64     `json:"active_subscribers"`
	InactiveSubscribers int64     `json:"inactive_subscribers"`
	Overrides           int64     `json:"overrides"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Service computes Data and caches it, in Redis when a client is given and
// in process memory otherwise.
type Service struct {
	subscribers SubscriberCounter
	overrides   OverrideLister
	client      *redis.Client
	expiration  time.Duration
	now         func() time.Time

	mu       sync.Mutex
	local    *Data
	localExp time.Time
}

func NewService(subscribers SubscriberCounter, overrides OverrideLister, client *redis.Client, expiration time.Duration) *Service {
	if expiration <= 0 {
		expiration = CacheExpiration
	}
	return &Service{
		subscribers: subscribers,
		overrides:   overrides,
		client:      client,
		expiration:  expiration,
		now:         time.Now,
	}
}

// Get returns cached statistics, recomputing them once the cache expired.
func (s *Service) Get(ctx context.Context) (Data, error) {
	if d, ok := s.cached(ctx); ok {
		return d, nil
	}
	d, err := s.compute(ctx)
	if err != nil {
		return Data{}, err
	}
	s.store(ctx, d)
	return d, nil
}

// Refresh recomputes and caches the statistics unconditionally.
func (s *Service) Refresh(ctx context.Context) (Data, error) {
	d, err := s.compute(ctx)
	if err != nil {
		return Data{}, err
	}
	s.store(ctx, d)
	return d, nil
}

func (s *Service) compute(ctx context.Context) (Data, error) {
	d := Data{GeneratedAt: s.now().UTC()}

	var err error
	if d.TotalSubscribers, err = s.subscribers.Count(ctx, ""); err != nil {
		return Data{}, fmt.Errorf("count subscribers: %w", err)
	}
	if d.ActiveSubscribers, err = s.subscribers.Count(ctx, models.SubscriptionActive); err != nil {
		return Data{}, fmt.Errorf("count active subscribers: %w", err)
	}
	d.InactiveSubscribers = d.TotalSubscribers - d.ActiveSubscribers

	if s.overrides != nil {
		ids, err := s.overrides.List(ctx)
		if err != nil {
			return Data{}, fmt.Errorf("list overrides: %w", err)
		}
		d.Overrides = int64(len(ids))
	}
	return d, nil
}

func (s *Service) cached(ctx context.Context) (Data, bool) {
	if s.client != nil {
		raw, err := s.client.Get(ctx, CacheKeySubscribers).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warnf("[Statistics] cache read failed: %v", err)
			}
			return Data{}, false
		}
		var d Data
		if err := json.Unmarshal(raw, &d); err != nil {
			return Data{}, false
		}
		return d, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local == nil || !s.now().Before(s.localExp) {
		return Data{}, false
	}
	return *s.local, true
}

func (s *Service) store(ctx context.Context, d Data) {
	if s.client != nil {
		raw, err := json.Marshal(d)
		if err == nil {
			err = s.client.Set(ctx, CacheKeySubscribers, raw, s.expiration).Err()
		}
		if err != nil {
			log.Warnf("[Statistics] cache write failed: %v", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = &d
	s.localExp = s.now().Add(s.expiration)
}
