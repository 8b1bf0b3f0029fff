// Package sqlite provides a hitl.Checkpointer backed by a SQLite database,
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deepnoodle-ai/hitl"
	_ "modernc.org/sqlite"
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

// Checkpointer stores the latest checkpoint of each thread as one row.
type Checkpointer struct {
	db     *sql.DB
	ownsDB bool
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*Checkpointer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hitl/sqlite: open %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	c, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an existing database handle and migrates it. The caller owns
// the handle.
func New(db *sql.DB, opts ...Option) (*Checkpointer, error) {
	c := &Checkpointer{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.migrate(context.Background()); err != nil {
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

func (c *Checkpointer) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id TEXT PRIMARY KEY,
		checkpoint_id TEXT NOT NULL,
		workflow_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		pending_step TEXT NOT NULL DEFAULT '',
		step_count INTEGER NOT NULL DEFAULT 0,
		checkpoint_at TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_status ON checkpoints(status);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("hitl/sqlite: migrate: %w", err)
	}
	return nil
}

// SaveCheckpoint upserts the thread's row.
func (c *Checkpointer) SaveCheckpoint(ctx context.Context, checkpoint *hitl.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("hitl/sqlite: marshal checkpoint: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO checkpoints (thread_id, checkpoint_id, workflow_name, status, pending_step, step_count, checkpoint_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET
			checkpoint_id = excluded.checkpoint_id,
			workflow_name = excluded.workflow_name,
			status = excluded.status,
			pending_step = excluded.pending_step,
			step_count = excluded.step_count,
			checkpoint_at = excluded.checkpoint_at,
			data = excluded.data`,
		checkpoint.ThreadID, checkpoint.ID, checkpoint.WorkflowName, string(checkpoint.Status),
		checkpoint.PendingStep, checkpoint.StepCount,
		checkpoint.CheckpointAt.UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("hitl/sqlite: save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the thread's checkpoint, or nil if there is none.
func (c *Checkpointer) LoadCheckpoint(ctx context.Context, threadID string) (*hitl.Checkpoint, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		`SELECT data FROM checkpoints WHERE thread_id = ?`, threadID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hitl/sqlite: load checkpoint: %w", err)
	}
	return decode(data)
}

// DeleteCheckpoint removes the thread's row.
func (c *Checkpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("hitl/sqlite: delete checkpoint: %w", err)
	}
	return nil
}

// ListThreads summarizes every stored thread, newest first.
func (c *Checkpointer) ListThreads(ctx context.Context) ([]*hitl.ThreadSummary, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT thread_id, data FROM checkpoints`)
	if err != nil {
		return nil, fmt.Errorf("hitl/sqlite: list threads: %w", err)
	}
	defer rows.Close()

	summaries := []*hitl.ThreadSummary{}
	for rows.Next() {
		var threadID, data string
		if err := rows.Scan(&threadID, &data); err != nil {
			return nil, fmt.Errorf("hitl/sqlite: scan thread: %w", err)
		}
		checkpoint, err := decode(data)
		if err != nil {
			c.logger.Warn("skipping unreadable checkpoint", "thread_id", threadID, "error", err)
			continue
		}
		summaries = append(summaries, hitl.SummarizeCheckpoint(checkpoint))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hitl/sqlite: list threads: %w", err)
	}
	hitl.SortSummaries(summaries)
	return summaries, nil
}

func decode(data string) (*hitl.Checkpoint, error) {
	var checkpoint hitl.Checkpoint
	if err := json.Unmarshal([]byte(data), &checkpoint); err != nil {
		return nil, fmt.Errorf("hitl/sqlite: unmarshal checkpoint: %w", err)
	}
	if checkpoint.State == nil {
		checkpoint.State = hitl.State{}
	}
	return &checkpoint, nil
}
