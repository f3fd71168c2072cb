package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sprint-estimator/internal/domain/model"
)

// SprintCache caches fetched sprint history per board. It is optional:
// a nil cache is a no-op, so wiring stays unconditional at the call site.
type SprintCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewSprintCache(client RedisClient, ttl time.Duration) *SprintCache {
	return &SprintCache{client: client, ttl: ttl}
}

func sprintKey(boardID, count int) string {
	return fmt.Sprintf("sprints:%d:%d", boardID, count)
}

func (c *SprintCache) Get(ctx context.Context, boardID, count int) ([]model.Sprint, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, sprintKey(boardID, count))
	if err != nil {
		return nil, false
	}
	var sprints []model.Sprint
	if err := json.Unmarshal([]byte(data), &sprints); err != nil {
		return nil, false
	}
	return sprints, true
}

func (c *SprintCache) Store(ctx context.Context, boardID, count int, sprints []model.Sprint) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(sprints)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sprintKey(boardID, count), data, c.ttl)
}

func (c *SprintCache) Invalidate(ctx context.Context, boardID, count int) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, sprintKey(boardID, count))
}
