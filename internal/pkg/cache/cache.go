package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

var (
	client    *redis.Client
	available bool
	ctx       = context.Background()
)

// Options returns the connection settings from CACHE_HOST, CACHE_PORT,
// CACHE_PASSWORD and CACHE_DB.
func Options() *redis.Options {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	db, err := strconv.Atoi(env.GetEnv("CACHE_DB", "0"))
	if err != nil {
		db = 0
	}
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       db,
	}
}

// SetupCache initializes the connection to the Redis compatible cache server
func SetupCache() {
	client = redis.NewClient(Options())

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pong, err := client.Ping(pingCtx).Result()
	if err != nil {
		available = false
		log.Warnf("Could not connect to cache: %v", err)
	} else {
		available = true
		log.Infof("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Available reports whether the last SetupCache reached the server.
func Available() bool {
	return client != nil && available
}

// ClientIfAvailable returns the client, or nil when the cache is unreachable.
func ClientIfAvailable() *redis.Client {
	if !Available() {
		return nil
	}
	return client
}
