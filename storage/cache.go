package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"flow-api/domain"
)

// Cache wraps a Store with Redis-backed caching for the hot per-user list
// reads (active habits and projects back nearly every dashboard render).
type Cache struct {
	*Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper around base using the provided Redis
// client and TTL.
func NewCache(base *Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}
}

// ActiveHabits returns the cached habit list when fresh, reading through to
// the table otherwise.
func (c *Cache) ActiveHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	key := habitsCacheKey(userID)
	if data, ok := c.load(ctx, key); ok {
		var habits []*domain.Habit
		if err := json.Unmarshal(data, &habits); err == nil {
			return habits, nil
		}
		_ = c.redis.Del(ctx, key).Err()
	}
	habits, err := c.Store.ActiveHabits(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, habits)
	return habits, nil
}

// PutHabit writes through and evicts the user's habit cache.
func (c *Cache) PutHabit(ctx context.Context, userID int64, h *domain.Habit) error {
	if err := c.Store.PutHabit(ctx, userID, h); err != nil {
		return err
	}
	c.evict(ctx, habitsCacheKey(userID))
	return nil
}

// ActiveProjects returns the cached project list when fresh, reading
// through to the table otherwise.
func (c *Cache) ActiveProjects(ctx context.Context, userID int64) ([]*domain.Project, error) {
	key := projectsCacheKey(userID)
	if data, ok := c.load(ctx, key); ok {
		var projects []*domain.Project
		if err := json.Unmarshal(data, &projects); err == nil {
			return projects, nil
		}
		_ = c.redis.Del(ctx, key).Err()
	}
	projects, err := c.Store.ActiveProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, projects)
	return projects, nil
}

// PutProject writes through and evicts the user's project cache.
func (c *Cache) PutProject(ctx context.Context, userID int64, p *domain.Project) error {
	if err := c.Store.PutProject(ctx, userID, p); err != nil {
		return err
	}
	c.evict(ctx, projectsCacheKey(userID))
	return nil
}

func (c *Cache) load(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func habitsCacheKey(userID int64) string {
	return "habits:" + strconv.FormatInt(userID, 10)
}

func projectsCacheKey(userID int64) string {
	return "projects:" + strconv.FormatInt(userID, 10)
}
