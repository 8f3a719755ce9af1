package entitlements

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// OverrideStore is the administratively managed allow list consulted by the
// gate next to the subscription status.
type OverrideStore interface {
	Add(ctx context.Context, externalID string) (bool, error)
	Remove(ctx context.Context, externalID string) error
	Clear(ctx context.Context) error
	Contains(ctx context.Context, externalID string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// MemoryOverrides lives for the lifetime of the process.
type MemoryOverrides struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryOverrides creates an empty process-local override set.
func NewMemoryOverrides() *MemoryOverrides {
	return &MemoryOverrides{ids: make(map[string]struct{})}
}

// Add inserts externalID and reports whether it was newly added.
func (m *MemoryOverrides) Add(_ context.Context, externalID string) (bool, error) {
	id := strings.TrimSpace(externalID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[id]; ok {
		return false, nil
	}
	m.ids[id] = struct{}{}
	return true, nil
}

func (m *MemoryOverrides) Remove(_ context.Context, externalID string) error {
	m.mu.Lock()
	delete(m.ids, strings.TrimSpace(externalID))
	m.mu.Unlock()
	return nil
}

func (m *MemoryOverrides) Clear(_ context.Context) error {
	m.mu.Lock()
	m.ids = make(map[string]struct{})
	m.mu.Unlock()
	return nil
}

func (m *MemoryOverrides) Contains(_ context.Context, externalID string) (bool, error) {
	m.mu.RLock()
	_, ok := m.ids[strings.TrimSpace(externalID)]
	m.mu.RUnlock()
	return ok, nil
}

func (m *MemoryOverrides) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// DefaultOverridesKey is the Redis set holding override ids.
const DefaultOverridesKey = "subgate:overrides"

// RedisOverrides persists the override set in Redis so it survives restarts
// and is shared between instances.
type RedisOverrides struct {
	client *redis.Client
	key    string
}

// NewRedisOverrides creates a Redis backed override set stored under key.
func NewRedisOverrides(client *redis.Client, key string) *RedisOverrides {
	if strings.TrimSpace(key) == "" {
		key = DefaultOverridesKey
	}
	return &RedisOverrides{client: client, key: key}
}

func (r *RedisOverrides) Add(ctx context.Context, externalID string) (bool, error) {
	n, err := r.client.SAdd(ctx, r.key, strings.TrimSpace(externalID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisOverrides) Remove(ctx context.Context, externalID string) error {
	return r.client.SRem(ctx, r.key, strings.TrimSpace(externalID)).Err()
}

func (r *RedisOverrides) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisOverrides) Contains(ctx context.Context, externalID string) (bool, error) {
	return r.client.SIsMember(ctx, r.key, strings.TrimSpace(externalID)).Result()
}

func (r *RedisOverrides) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
