package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/SubGate/internal/pkg/cache"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
)

const limiterRedisDatabase = 1

// newLimiter rate limits per API key, or per IP when no key is sent. Counters
// live in Redis when the cache is reachable so all instances share them.
func newLimiter() fiber.Handler {
	cfg := limiter.Config{
		Max:        envInt("API_RATE_LIMIT", 120),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if key := c.Get("X-API-Key"); key != "" {
				return "key:" + key
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many requests"})
		},
	}

	if cacheClient := cache.ClientIfAvailable(); cacheClient != nil {
		host := "localhost"
		port := 6379
		if h, p, err := net.SplitHostPort(cacheClient.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Separate database for limiter counters (cache uses DB 0)
		cfg.Storage = redis.New(redis.Config{
			Host:     host,
			Port:     port,
			Username: cacheClient.Options().Username,
			Password: cacheClient.Options().Password,
			Database: limiterRedisDatabase,
			Reset:    false,
		})
	}

	return limiter.New(cfg)
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(env.GetEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
