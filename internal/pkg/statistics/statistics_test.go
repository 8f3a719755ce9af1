package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/SubGate/app/models"
	"github.com/ManuelReschke/SubGate/internal/pkg/cache/cachetest"
)

type countingStore struct {
	total, active int64
	calls         int
	err           error
}

func (c *countingStore) Count(_ context.Context, status models.SubscriptionStatus) (int64, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	if status == models.SubscriptionActive {
		return c.active, nil
	}
	return c.total, nil
}

type staticOverrides []string

func (s staticOverrides) List(context.Context) ([]string, error) { return s, nil }

func TestService_ComputesAndCachesInMemory(t *testing.T) {
	store := &countingStore{total: 10, active: 4}
	svc := NewService(store, staticOverrides{"1", "2"}, nil, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	d, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 10, d.TotalSubscribers)
	assert.EqualValues(t, 4, d.ActiveSubscribers)
	assert.EqualValues(t, 6, d.InactiveSubscribers)
	assert.EqualValues(t, 2, d.Overrides)
	assert.Equal(t, 2, store.calls)

	store.active = 5
	d, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, d.ActiveSubscribers, "served from cache")
	assert.Equal(t, 2, store.calls)

	now = now.Add(2 * time.Minute)
	d, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, d.ActiveSubscribers)

	store.active = 6
	d, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 6, d.ActiveSubscribers)
}

func TestService_StoreError(t *testing.T) {
	svc := NewService(&countingStore{err: errors.New("db down")}, nil, nil, 0)
	_, err := svc.Get(context.Background())
	assert.Error(t, err)
}

func TestService_RedisCache(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, 11)
	store := &countingStore{total: 3, active: 1}

	svc := NewService(store, nil, client, time.Minute)
	d, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.TotalSubscribers)

	// a second instance shares the cached value
	other := NewService(&countingStore{total: 99}, nil, client, time.Minute)
	d, err = other.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.TotalSubscribers)
}
