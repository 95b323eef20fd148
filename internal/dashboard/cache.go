package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-health/meridian/internal/rbac"
)

const (
	cacheVersionKey = "dashboard:version"
	bumpChannel     = "dashboard.bump"
)

// ViewCache stores composed views in Redis with version-based invalidation.
// Only views the composer marked cacheable are stored; callers always re-check
// the Cacheable hint themselves. A nil cache disables caching entirely.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewCache instantiates the cache helper.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *ViewCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// Key composes the cache key for a principal scope with the current version.
func (c *ViewCache) Key(ctx context.Context, p rbac.Principal) (string, error) {
	tenant := "-"
	if p.TenantID != nil {
		tenant = p.TenantID.String()
	}
	base := strings.Join([]string{"dashboard", "view", string(p.Role), tenant}, ":")
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", base, ver), nil
}

// Get loads a cached view. The second return is false on a miss.
func (c *ViewCache) Get(ctx context.Context, key string) (View, bool, error) {
	if c == nil || c.client == nil {
		return View{}, false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return View{}, false, nil
	}
	if err != nil {
		return View{}, false, err
	}
	var view View
	if err := json.Unmarshal(payload, &view); err != nil {
		return View{}, false, err
	}
	return view, true, nil
}

// Put stores a view when the composer marked it cacheable. Degraded views are
// never cached: a recovered upstream should surface immediately.
func (c *ViewCache) Put(ctx context.Context, key string, view View) error {
	if c == nil || c.client == nil || !view.Cacheable {
		return nil
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Bump invalidates every cached view by incrementing the version and
// publishing an event for other replicas.
func (c *ViewCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}
