package billing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/SubGate/app/repository"
	"github.com/ManuelReschke/SubGate/internal/pkg/entitlements"
	"github.com/ManuelReschke/SubGate/internal/pkg/env"
	"github.com/ManuelReschke/SubGate/internal/pkg/statistics"
)

// Override store backends selectable with OVERRIDE_STORE.
const (
	OverrideStoreMemory = "memory"
	OverrideStoreRedis  = "redis"
)

// Config collects the engine settings.
type Config struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	WebhookTimeout   time.Duration
	MetadataKey      string
	ProviderCacheTTL time.Duration
	OverrideStore    string
	OverridesKey     string
	StatisticsTTL    time.Duration
	Checkout         CheckoutConfig
}

// ConfigFromEnv reads the engine settings from the environment.
func ConfigFromEnv() Config {
	key := strings.TrimSpace(env.GetEnv("BILLING_METADATA_KEY", DefaultMetadataKey))
	return Config{
		WebhookSecret:    strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		WebhookTolerance: durationFromEnv("STRIPE_WEBHOOK_TOLERANCE", 0),
		WebhookTimeout:   durationFromEnv("WEBHOOK_TIMEOUT", DefaultWebhookTimeout),
		MetadataKey:      key,
		ProviderCacheTTL: durationFromEnv("CACHE_PROVIDER_TTL", defaultProviderCacheTTL),
		OverrideStore:    strings.ToLower(strings.TrimSpace(env.GetEnv("OVERRIDE_STORE", OverrideStoreMemory))),
		OverridesKey:     env.GetEnv("OVERRIDE_REDIS_KEY", entitlements.DefaultOverridesKey),
		StatisticsTTL:    durationFromEnv("STATISTICS_CACHE_TTL", statistics.CacheExpiration),
		Checkout: CheckoutConfig{
			Prices:      PriceTableFromEnv(),
			SuccessURL:  strings.TrimSpace(env.GetEnv("STRIPE_CHECKOUT_SUCCESS_URL", "")),
			CancelURL:   strings.TrimSpace(env.GetEnv("STRIPE_CHECKOUT_CANCEL_URL", "")),
			MetadataKey: key,
		},
	}
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warnf("[Billing] invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

// Dependencies are the collaborators the engine is built on. Provider and
// Redis are optional.
type Dependencies struct {
	Repositories   *repository.Repositories
	Provider       Provider
	SessionCreator SessionCreator
	Redis          *redis.Client
}

// Engine wires the reconciliation core together.
type Engine struct {
	Subscribers repository.SubscriberRepository
	Overrides   entitlements.OverrideStore
	Gate        *entitlements.Gate
	Resolver    *Resolver
	Reconciler  *Reconciler
	Dispatcher  *Dispatcher
	Receiver    *Receiver
	Checkout    *CheckoutService
	Statistics  *statistics.Service
}

// NewEngine builds an engine. Without a provider only notifications that
// carry the user id directly can be resolved.
func NewEngine(cfg Config, deps Dependencies) *Engine {
	repos := deps.Repositories
	if repos == nil {
		repos = repository.NewMemoryRepositories()
	}

	var overrides entitlements.OverrideStore
	if cfg.OverrideStore == OverrideStoreRedis && deps.Redis != nil {
		overrides = entitlements.NewRedisOverrides(deps.Redis, cfg.OverridesKey)
	} else {
		if cfg.OverrideStore == OverrideStoreRedis {
			log.Warn("[Billing] OVERRIDE_STORE=redis without a cache connection, overrides are process-local")
		}
		overrides = entitlements.NewMemoryOverrides()
	}

	var provider Provider = unconfiguredProvider{}
	if deps.Provider != nil {
		provider = NewCachedProvider(deps.Provider, deps.Redis, cfg.ProviderCacheTTL)
	}

	resolver := NewResolver(provider, cfg.MetadataKey)
	reconciler := NewReconciler(repos.Subscriber, provider, cfg.MetadataKey)
	dispatcher := NewDispatcher(reconciler)

	return &Engine{
		Subscribers: repos.Subscriber,
		Overrides:   overrides,
		Gate:        entitlements.NewGate(repos.Subscriber, overrides),
		Resolver:    resolver,
		Reconciler:  reconciler,
		Dispatcher:  dispatcher,
		Receiver: NewReceiver(ReceiverConfig{
			WebhookSecret: cfg.WebhookSecret,
			Tolerance:     cfg.WebhookTolerance,
			Timeout:       cfg.WebhookTimeout,
		}, resolver, dispatcher, repos.WebhookEvent),
		Checkout:   NewCheckoutService(deps.SessionCreator, cfg.Checkout),
		Statistics: statistics.NewService(repos.Subscriber, overrides, deps.Redis, cfg.StatisticsTTL),
	}
}

// unconfiguredProvider fails every lookup so that resolution errors stay
// retryable until a Stripe key is configured.
type unconfiguredProvider struct{}

func (unconfiguredProvider) Retrieve(context.Context, ObjectKind, string) (*ProviderObject, error) {
	return nil, ErrNotConfigured
}

func (unconfiguredProvider) AttachMetadata(context.Context, ObjectKind, string, string, string) error {
	return ErrNotConfigured
}

var (
	globalEngine *Engine
	engineMu     sync.RWMutex
)

// SetupEngine installs the process-wide engine.
func SetupEngine(e *Engine) {
	engineMu.Lock()
	defer engineMu.Unlock()
	globalEngine = e
}

// GetEngine returns the process-wide engine.
func GetEngine() *Engine {
	engineMu.RLock()
	defer engineMu.RUnlock()
	if globalEngine == nil {
		panic("Billing engine not initialized. Call SetupEngine first.")
	}
	return globalEngine
}
