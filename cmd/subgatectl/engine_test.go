package main

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
	"github.com/ManuelReschke/SubGate/internal/pkg/entitlements"
)

func TestCheckShared(t *testing.T) {
	db := &gorm.DB{}
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	redisCfg := billing.Config{OverrideStore: billing.OverrideStoreRedis}
	memoryCfg := billing.Config{OverrideStore: billing.OverrideStoreMemory}

	tests := []struct {
		name   string
		need   backing
		db     *gorm.DB
		cfg    billing.Config
		client *redis.Client
		want   error
	}{
		{name: "no requirements", need: 0, cfg: memoryCfg},
		{name: "database missing", need: needDatabase, cfg: redisCfg, client: client, want: errLocalDatabase},
		{name: "database present", need: needDatabase, db: db, cfg: memoryCfg},
		{name: "memory override store", need: needOverrides, db: db, cfg: memoryCfg, client: client, want: errLocalOverrides},
		{name: "redis store without connection", need: needOverrides, db: db, cfg: redisCfg, want: errLocalOverrides},
		{name: "redis override store", need: needOverrides, cfg: redisCfg, client: client},
		{name: "status needs both", need: needDatabase | needOverrides, db: db, cfg: memoryCfg, client: client, want: errLocalOverrides},
		{name: "status with shared state", need: needDatabase | needOverrides, db: db, cfg: redisCfg, client: client},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkShared(tt.need, tt.db, tt.cfg, tt.client)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubscriberStatus_OverrideWithoutRecord(t *testing.T) {
	engine := billing.NewEngine(billing.Config{}, billing.Dependencies{
		Repositories: repository.NewMemoryRepositories(),
	})
	ctx := context.Background()
	_, err := engine.Overrides.Add(ctx, "42")
	require.NoError(t, err)

	report, err := subscriberStatus(ctx, engine, "42")
	require.NoError(t, err)

	decision := report["decision"].(entitlements.Decision)
	assert.True(t, decision.Allowed)
	assert.Equal(t, entitlements.ReasonOverride, decision.Reason)
	assert.Nil(t, report["subscriber"])
}

func TestSubscriberStatus_StoredRecord(t *testing.T) {
	engine := billing.NewEngine(billing.Config{}, billing.Dependencies{
		Repositories: repository.NewMemoryRepositories(),
	})
	ctx := context.Background()
	_, _, err := engine.Subscribers.Ensure(ctx, "7")
	require.NoError(t, err)

	report, err := subscriberStatus(ctx, engine, "7")
	require.NoError(t, err)
	assert.False(t, report["decision"].(entitlements.Decision).Allowed)
	assert.NotNil(t, report["subscriber"])
}
