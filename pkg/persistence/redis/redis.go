// Package redis provides Redis persistence for workflow documents. Each document is a
// JSON string key; a sorted set scored by creation time indexes them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/serializer"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "flowcanvas:"
	pingTimeout      = 5 * time.Second
)

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client    *redis.Client
	logger    *slog.Logger
	keyPrefix string
	now       func() time.Time
}

// NewPersistence connects using a redis:// or rediss:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Persistence{
		client:    client,
		logger:    logger,
		keyPrefix: defaultKeyPrefix,
		now:       time.Now,
	}, nil
}

func (p *Persistence) workflowKey(id string) string {
	return p.keyPrefix + "workflow:" + id
}

func (p *Persistence) indexKey() string {
	return p.keyPrefix + "workflows"
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Save writes the document and indexes it in one transaction.
func (p *Persistence) Save(ctx context.Context, workflow *models.Workflow) error {
	if err := persistence.Stamp(workflow, p.now()); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.workflowKey(workflow.ID), data, 0)
		pipe.ZAdd(ctx, p.indexKey(), redis.Z{
			Score:  float64(workflow.CreatedAt.UnixNano()),
			Member: workflow.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) Load(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := p.client.Get(ctx, p.workflowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewWorkflowError("Load", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	workflow, err := serializer.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	return workflow, nil
}

// List reads every indexed document and pages them in memory. Index entries whose
// document vanished are pruned.
func (p *Persistence) List(ctx context.Context, opts persistence.ListOptions) (*persistence.ListResult, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	ids, err := p.client.ZRange(ctx, p.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow index: %w", err)
	}

	if len(ids) == 0 {
		return persistence.Page(nil, opts), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = p.workflowKey(id)
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(values))

	var stale []any

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			stale = append(stale, ids[i])

			continue
		}

		workflow, err := serializer.Unmarshal([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", ids[i], err)
		}

		workflows = append(workflows, workflow)
	}

	if len(stale) > 0 {
		if err := p.client.ZRem(ctx, p.indexKey(), stale...).Err(); err != nil {
			p.logger.WarnContext(ctx, "failed to prune workflow index", "error", err)
		}
	}

	return persistence.Page(workflows, opts), nil
}

// Delete is idempotent.
func (p *Persistence) Delete(ctx context.Context, id string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.workflowKey(id))
		pipe.ZRem(ctx, p.indexKey(), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	return nil
}
