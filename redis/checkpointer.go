// Package redis provides a hitl.Checkpointer backed by Redis. Each thread's
// latest checkpoint is a hash; a set tracks thread ids for enumeration.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	checkpointer := redis.New(client)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/deepnoodle-ai/hitl"
)

var (
	_ hitl.Checkpointer = (*Checkpointer)(nil)
	_ hitl.ThreadLister = (*Checkpointer)(nil)
)

// Option configures the Checkpointer.
type Option func(*Checkpointer)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checkpointer) { c.logger = l }
}

// WithKeyPrefix overrides the "hitl:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Checkpointer) { c.prefix = prefix }
}

// WithTTL expires thread checkpoints after d of inactivity. Zero, the
// default, keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(c *Checkpointer) { c.ttl = d }
}

// Checkpointer implements hitl.Checkpointer on Redis.
type Checkpointer struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis-backed checkpointer. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Checkpointer {
	c := &Checkpointer{client: client, prefix: "hitl:", logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open parses a redis:// URL and returns a checkpointer with its own client.
// The caller closes the returned client.
func Open(ctx context.Context, url string, opts ...Option) (*Checkpointer, *goredis.Client, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("hitl/redis: parse url: %w", err)
	}
	client := goredis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("hitl/redis: ping: %w", err)
	}
	return New(client, opts...), client, nil
}

// Ping verifies the Redis connection is alive.
func (c *Checkpointer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SaveCheckpoint writes the thread's hash and indexes the thread id in a
// single MULTI/EXEC.
func (c *Checkpointer) SaveCheckpoint(ctx context.Context, checkpoint *hitl.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("hitl/redis: marshal checkpoint: %w", err)
	}
	key := c.checkpointKey(checkpoint.ThreadID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key,
		"id", checkpoint.ID,
		"workflow_name", checkpoint.WorkflowName,
		"status", string(checkpoint.Status),
		"pending_step", checkpoint.PendingStep,
		"checkpoint_at", checkpoint.CheckpointAt.UTC().Format(time.RFC3339Nano),
		"data", string(data),
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	pipe.SAdd(ctx, c.threadIDsKey(), checkpoint.ThreadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hitl/redis: save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the thread's checkpoint, or nil if there is none.
func (c *Checkpointer) LoadCheckpoint(ctx context.Context, threadID string) (*hitl.Checkpoint, error) {
	data, err := c.client.HGet(ctx, c.checkpointKey(threadID), "data").Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hitl/redis: load checkpoint: %w", err)
	}
	return decode(data)
}

// DeleteCheckpoint removes the thread's hash and index entry.
func (c *Checkpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.checkpointKey(threadID))
	pipe.SRem(ctx, c.threadIDsKey(), threadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hitl/redis: delete checkpoint: %w", err)
	}
	return nil
}

// ListThreads summarizes every indexed thread, newest first. Index entries
// whose hash has expired are pruned.
func (c *Checkpointer) ListThreads(ctx context.Context) ([]*hitl.ThreadSummary, error) {
	ids, err := c.client.SMembers(ctx, c.threadIDsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hitl/redis: list threads smembers: %w", err)
	}

	summaries := []*hitl.ThreadSummary{}
	for _, threadID := range ids {
		checkpoint, err := c.LoadCheckpoint(ctx, threadID)
		if err != nil {
			c.logger.Warn("skipping unreadable checkpoint", "thread_id", threadID, "error", err)
			continue
		}
		if checkpoint == nil {
			c.client.SRem(ctx, c.threadIDsKey(), threadID)
			continue
		}
		summaries = append(summaries, hitl.SummarizeCheckpoint(checkpoint))
	}
	hitl.SortSummaries(summaries)
	return summaries, nil
}

func decode(data string) (*hitl.Checkpoint, error) {
	var checkpoint hitl.Checkpoint
	if err := json.Unmarshal([]byte(data), &checkpoint); err != nil {
		return nil, fmt.Errorf("hitl/redis: unmarshal checkpoint: %w", err)
	}
	if checkpoint.State == nil {
		checkpoint.State = hitl.State{}
	}
	return &checkpoint, nil
}
