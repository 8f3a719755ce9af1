package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/SubGate/app/models"
)

func TestMemorySubscriberRepository_Ensure(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	sub, created, err := repo.Ensure(ctx, " 42 ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "42", sub.ExternalID)
	assert.Equal(t, models.SubscriptionInactive, sub.Status)
	assert.NotZero(t, sub.ID)

	again, created, err := repo.Ensure(ctx, "42")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)

	_, _, err = repo.Ensure(ctx, "")
	assert.Error(t, err)
}

func TestMemorySubscriberRepository_Update(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	sub, created, err := repo.Update(ctx, "42", false, func(s *models.Subscriber) (bool, error) {
		assert.Nil(t, s)
		return false, nil
	})
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.False(t, created)

	_, _, err = repo.Update(ctx, "42", true, func(s *models.Subscriber) (bool, error) {
		return false, errors.New("boom")
	})
	require.Error(t, err)
	_, err = repo.GetByExternalID(ctx, "42")
	assert.ErrorIs(t, err, ErrSubscriberNotFound)

	sub, created, err = repo.Update(ctx, "42", true, func(s *models.Subscriber) (bool, error) {
		s.Status = models.SubscriptionActive
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, sub.IsActive())

	// returned records are copies
	sub.Status = models.SubscriptionInactive
	stored, err := repo.GetByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
}

func TestMemorySubscriberRepository_SerializesPerKey(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.Update(ctx, "42", true, func(s *models.Subscriber) (bool, error) {
				s.LastEventID += "x"
				return true, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sub, err := repo.GetByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, sub.LastEventID, 50)
}

func TestMemorySubscriberRepository_ListAndCount(t *testing.T) {
	repo := NewMemorySubscriberRepository()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		active := i%2 == 1
		_, _, err := repo.Update(ctx, fmt.Sprint(i), true, func(s *models.Subscriber) (bool, error) {
			if active {
				s.Status = models.SubscriptionActive
			}
			return active, nil
		})
		require.NoError(t, err)
	}

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	active, err := repo.Count(ctx, models.SubscriptionActive)
	require.NoError(t, err)
	assert.EqualValues(t, 3, active)

	page, err := repo.List(ctx, "", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2", page[0].ExternalID)
	assert.Equal(t, "3", page[1].ExternalID)

	empty, err := repo.List(ctx, "", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryWebhookEventRepository(t *testing.T) {
	repo := NewMemoryWebhookEventRepository()
	ctx := context.Background()
	event := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "charge.failed",
		PayloadJSON:     "{}",
		SignatureValid:  true,
	}

	created, stored, err := repo.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, stored.IsDone())

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, "", "resolution failed"))
	created, again, err := repo.CreateIfNotExists(ctx, event)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.False(t, again.IsDone())

	require.NoError(t, repo.MarkProcessed(ctx, stored.ID, "42", ""))
	done, ok := repo.Get(models.BillingProviderStripe, "evt_1")
	require.True(t, ok)
	assert.True(t, done.IsDone())
	assert.Equal(t, "42", done.ExternalID)
	assert.Equal(t, 2, done.Attempts)

	assert.ErrorIs(t, repo.MarkProcessed(ctx, 999, "", ""), ErrWebhookEventNotFound)
}

func TestFactory_MemoryFallback(t *testing.T) {
	f := NewFactory(nil)
	repos := f.GetRepositories()
	assert.Same(t, repos, f.GetRepositories())
	assert.IsType(t, &MemorySubscriberRepository{}, f.GetSubscriberRepository())
	assert.IsType(t, &MemoryWebhookEventRepository{}, f.GetWebhookEventRepository())
}
