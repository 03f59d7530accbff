package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

type backend interface {
	ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	FetchBoard(ctx context.Context, projectID string) ([]domain.Task, error)
	GetTask(ctx context.Context, taskID string) (*domain.Task, string, error)
	CountByStatus(ctx context.Context, projectID string, status domain.Status) (int, error)
	ApplyOrder(ctx context.Context, projectID string, items []domain.OrderItem) error
	UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch, etag string) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// Cache wraps a Storage with Redis-backed caching of board reads. Every
// write path evicts the project's cached board, so a fetch right after a
// commit observes the committed ordering. Reads used by the commit service
// itself (GetTask, CountByStatus, ListProjectTasks) always go to the
// backing store; serving those from cache could renumber against a stale
// count.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	return c.base.ListProjectTasks(ctx, projectID)
}

func (c *Cache) GetTask(ctx context.Context, taskID string) (*domain.Task, string, error) {
	return c.base.GetTask(ctx, taskID)
}

func (c *Cache) CountByStatus(ctx context.Context, projectID string, status domain.Status) (int, error) {
	return c.base.CountByStatus(ctx, projectID, status)
}

func (c *Cache) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return c.base.IsMember(ctx, projectID, userID)
}

func (c *Cache) FetchBoard(ctx context.Context, projectID string) ([]domain.Task, error) {
	if tasks, ok := c.loadBoard(ctx, projectID); ok {
		return tasks, nil
	}
	tasks, err := c.base.FetchBoard(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.storeBoard(ctx, projectID, tasks)
	return tasks, nil
}

func (c *Cache) ApplyOrder(ctx context.Context, projectID string, items []domain.OrderItem) error {
	if err := c.base.ApplyOrder(ctx, projectID, items); err != nil {
		return err
	}
	c.evict(ctx, projectID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch, etag string) error {
	if err := c.base.UpdateTask(ctx, projectID, taskID, patch, etag); err != nil {
		return err
	}
	c.evict(ctx, projectID)
	return nil
}

func (c *Cache) loadBoard(ctx context.Context, projectID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeBoard(ctx context.Context, projectID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(projectID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, projectID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, boardCacheKey(projectID)).Result()
}

func boardCacheKey(projectID string) string {
	return "board:" + projectID
}
