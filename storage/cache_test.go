package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"flow-api/domain"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewCache(&Store{}, rc, time.Minute), mr
}

func TestActiveHabitsServedFromCache(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	cached := []*domain.Habit{{ID: 7, Name: "meditate"}}
	data, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := c.redis.Set(ctx, habitsCacheKey(1), data, time.Minute).Err(); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	habits, err := c.ActiveHabits(ctx, 1)
	if err != nil {
		t.Fatalf("ActiveHabits: %v", err)
	}
	if len(habits) != 1 || habits[0].Name != "meditate" {
		t.Fatalf("unexpected habits: %#v", habits)
	}
}

func TestActiveProjectsServedFromCache(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	cached := []*domain.Project{{ID: 3, Title: "garden"}}
	data, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := c.redis.Set(ctx, projectsCacheKey(2), data, time.Minute).Err(); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	projects, err := c.ActiveProjects(ctx, 2)
	if err != nil {
		t.Fatalf("ActiveProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].Title != "garden" {
		t.Fatalf("unexpected projects: %#v", projects)
	}
}

func TestCacheStoreLoadRoundtrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.store(ctx, "k", []string{"a", "b"})
	data, ok := c.load(ctx, "k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("unexpected value: %#v", out)
	}

	c.evict(ctx, "k")
	if _, ok := c.load(ctx, "k"); ok {
		t.Fatal("expected miss after evict")
	}
}

func TestCacheKeysArePerUser(t *testing.T) {
	if habitsCacheKey(1) == habitsCacheKey(2) {
		t.Fatal("habit cache keys must differ per user")
	}
	if habitsCacheKey(1) == projectsCacheKey(1) {
		t.Fatal("habit and project cache keys must differ")
	}
}
