// Package postgres provides a hitl.Checkpointer backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deepnoodle-ai/hitl"
	_ "github.com/lib/pq"
)

var (
	_ hitl.Checkpointer = (*Checkpointer)(nil)
	_ hitl.ThreadLister = (*Checkpointer)(nil)
)

// Option configures the Checkpointer.
type Option func(*Checkpointer)

// WithLogger sets the logger for the checkpointer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checkpointer) { c.logger = logger }
}

// WithTable overrides the table name. Defaults to "hitl_checkpoints".
func WithTable(table string) Option {
	return func(c *Checkpointer) { c.table = table }
}

// Checkpointer stores the latest checkpoint of each thread as one row with
// the checkpoint document in a JSONB column.
type Checkpointer struct {
	db     *sql.DB
	ownsDB bool
	table  string
	logger *slog.Logger
}

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*Checkpointer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("hitl/postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("hitl/postgres: ping: %w", err)
	}
	c, err := New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an existing database handle and migrates the schema. The caller
// owns the handle.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Checkpointer, error) {
	c := &Checkpointer{db: db, table: "hitl_checkpoints", logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Migrate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the database if it was opened by Open.
func (c *Checkpointer) Close() error {
	if !c.ownsDB {
		return nil
	}
	return c.db.Close()
}

// Migrate creates the checkpoint table if it does not exist.
func (c *Checkpointer) Migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		thread_id TEXT PRIMARY KEY,
		checkpoint_id TEXT NOT NULL,
		workflow_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		pending_step TEXT NOT NULL DEFAULT '',
		step_count INTEGER NOT NULL DEFAULT 0,
		checkpoint_at TIMESTAMPTZ NOT NULL,
		data JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_status ON %[1]s(status);
	`, c.table)
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("hitl/postgres: migrate: %w", err)
	}
	return nil
}

// SaveCheckpoint upserts the thread's row.
func (c *Checkpointer) SaveCheckpoint(ctx context.Context, checkpoint *hitl.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("hitl/postgres: marshal checkpoint: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, checkpoint_id, workflow_name, status, pending_step, step_count, checkpoint_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (thread_id) DO UPDATE SET
			checkpoint_id = EXCLUDED.checkpoint_id,
			workflow_name = EXCLUDED.workflow_name,
			status = EXCLUDED.status,
			pending_step = EXCLUDED.pending_step,
			step_count = EXCLUDED.step_count,
			checkpoint_at = EXCLUDED.checkpoint_at,
			data = EXCLUDED.data`, c.table)
	_, err = c.db.ExecContext(ctx, query,
		checkpoint.ThreadID, checkpoint.ID, checkpoint.WorkflowName, string(checkpoint.Status),
		checkpoint.PendingStep, checkpoint.StepCount, checkpoint.CheckpointAt.UTC(), data,
	)
	if err != nil {
		return fmt.Errorf("hitl/postgres: save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the thread's checkpoint, or nil if there is none.
func (c *Checkpointer) LoadCheckpoint(ctx context.Context, threadID string) (*hitl.Checkpoint, error) {
	var data []byte
	query := fmt.Sprintf(`SELECT data FROM %s WHERE thread_id = $1`, c.table)
	err := c.db.QueryRowContext(ctx, query, threadID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hitl/postgres: load checkpoint: %w", err)
	}
	return decode(data)
}

// DeleteCheckpoint removes the thread's row.
func (c *Checkpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE thread_id = $1`, c.table)
	if _, err := c.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("hitl/postgres: delete checkpoint: %w", err)
	}
	return nil
}

// ListThreads summarizes every stored thread, newest first.
func (c *Checkpointer) ListThreads(ctx context.Context) ([]*hitl.ThreadSummary, error) {
	query := fmt.Sprintf(`SELECT thread_id, data FROM %s`, c.table)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("hitl/postgres: list threads: %w", err)
	}
	defer rows.Close()

	summaries := []*hitl.ThreadSummary{}
	for rows.Next() {
		var threadID string
		var data []byte
		if err := rows.Scan(&threadID, &data); err != nil {
			return nil, fmt.Errorf("hitl/postgres: scan thread: %w", err)
		}
		checkpoint, err := decode(data)
		if err != nil {
			c.logger.Warn("skipping unreadable checkpoint", "thread_id", threadID, "error", err)
			continue
		}
		summaries = append(summaries, hitl.SummarizeCheckpoint(checkpoint))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hitl/postgres: list threads: %w", err)
	}
	hitl.SortSummaries(summaries)
	return summaries, nil
}

func decode(data []byte) (*hitl.Checkpoint, error) {
	var checkpoint hitl.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("hitl/postgres: unmarshal checkpoint: %w", err)
	}
	if checkpoint.State == nil {
		checkpoint.State = hitl.State{}
	}
	return &checkpoint, nil
}
