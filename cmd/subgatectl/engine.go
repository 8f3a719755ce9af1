package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/billing"
	"github.com/ManuelReschke/SubGate/internal/pkg/cache"
	"github.com/ManuelReschke/SubGate/internal/pkg/database"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

// backing is the shared state a command reads or writes.
type backing int

const (
	needDatabase backing = 1 << iota
	needOverrides
)

var (
	errLocalDatabase  = errors.New("subscriber store is process-local; set DB_NAME or use /api/v1/admin/subscribers")
	errLocalOverrides = errors.New("override store is process-local; set OVERRIDE_STORE=redis or use /api/v1/admin/overrides")
)

// checkShared refuses to run a command against state that would vanish with
// this process instead of reaching the running server.
func checkShared(need backing, db *gorm.DB, cfg billing.Config, client *redis.Client) error {
	if need&needDatabase != 0 && db == nil {
		return errLocalDatabase
	}
	if need&needOverrides != 0 && (cfg.OverrideStore != billing.OverrideStoreRedis || client == nil) {
		return errLocalOverrides
	}
	return nil
}

// loadEngine builds the same engine the server runs, minus the Stripe client.
func loadEngine(need backing) (*billing.Engine, error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg := billing.ConfigFromEnv()
	db := database.GetDB()
	client := cache.ClientIfAvailable()
	if err := checkShared(need, db, cfg, client); err != nil {
		return nil, err
	}

	return billing.NewEngine(cfg, billing.Dependencies{
		Repositories: repository.NewFactory(db).GetRepositories(),
		Redis:        client,
	}), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
