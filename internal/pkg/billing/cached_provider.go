package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	defaultProviderCacheTTL    = 5 * time.Minute
	defaultProviderCachePrefix = "subgate:provider:"
	defaultProviderLookupLimit = 10 * time.Second
)

// CachedProvider mirrors provider reads in Redis and collapses concurrent
// lookups of the same object into one API call. A nil client disables the
// mirror but keeps the collapsing.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	limit  time.Duration
	prefix string
	group  singleflight.Group
}

// NewCachedProvider wraps next with a Redis mirror.
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultProviderCacheTTL
	}
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		limit:  defaultProviderLookupLimit,
		prefix: defaultProviderCachePrefix,
	}
}

func (c *CachedProvider) key(kind ObjectKind, id string) string {
	return fmt.Sprintf("%s%s:%s", c.prefix, kind, id)
}

func (c *CachedProvider) Retrieve(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error) {
	key := c.key(kind, id)
	if obj, ok := c.lookup(ctx, key); ok {
		return obj, nil
	}

	// The shared lookup outlives any single caller; each caller only stops
	// waiting when its own context ends.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.limit)
		defer cancel()
		obj, err := c.next.Retrieve(lookupCtx, kind, id)
		if err != nil {
			return nil, err
		}
		c.remember(lookupCtx, key, obj)
		return obj, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyObject(res.Val.(*ProviderObject)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CachedProvider) AttachMetadata(ctx context.Context, kind ObjectKind, id, key, value string) error {
	if err := c.next.AttachMetadata(ctx, kind, id, key, value); err != nil {
		return err
	}
	if c.client != nil {
		if err := c.client.Del(ctx, c.key(kind, id)).Err(); err != nil {
			log.Warnf("[Billing] failed to invalidate cached %s %s: %v", kind, id, err)
		}
	}
	return nil
}

func (c *CachedProvider) lookup(ctx context.Context, key string) (*ProviderObject, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[Billing] provider cache read %s failed: %v", key, err)
		}
		return nil, false
	}
	var obj ProviderObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return &obj, true
}

func (c *CachedProvider) remember(ctx context.Context, key string, obj *ProviderObject) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warnf("[Billing] provider cache write %s failed: %v", key, err)
	}
}

func copyObject(obj *ProviderObject) *ProviderObject {
	out := *obj
	if obj.Metadata != nil {
		out.Metadata = make(map[string]string, len(obj.Metadata))
		for k, v := range obj.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
