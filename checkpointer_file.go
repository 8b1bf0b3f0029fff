package hitl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileCheckpointer is a file-based implementation that persists checkpoints to
// disk. Each thread gets its own directory holding every checkpoint written
// for it plus a latest.json copy of the most recent one.
type FileCheckpointer struct {
	dataDir string
}

// NewFileCheckpointer creates a new file-based checkpointer
func NewFileCheckpointer(dataDir string) (*FileCheckpointer, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".deepnoodle", "hitl", "threads")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	return &FileCheckpointer{dataDir: dataDir}, nil
}

// Dir returns the directory checkpoints are stored under
func (c *FileCheckpointer) Dir() string {
	return c.dataDir
}

// SaveCheckpoint saves the thread checkpoint to disk
func (c *FileCheckpointer) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	threadDir, err := c.threadDir(checkpoint.ThreadID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(threadDir, 0755); err != nil {
		return fmt.Errorf("failed to create thread directory: %w", err)
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	checkpointPath := filepath.Join(threadDir, fmt.Sprintf("checkpoint-%s.json", checkpoint.ID))
	if err := os.WriteFile(checkpointPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	// Replace latest.json atomically so readers never see a partial file
	if err := writeFileAtomic(filepath.Join(threadDir, "latest.json"), data); err != nil {
		return fmt.Errorf("failed to update latest checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint loads the latest checkpoint for a thread
func (c *FileCheckpointer) LoadCheckpoint(ctx context.Context, threadID string) (*Checkpoint, error) {
	threadDir, err := c.threadDir(threadID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(threadDir, "latest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No checkpoint found
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if checkpoint.State == nil {
		checkpoint.State = State{}
	}
	return &checkpoint, nil
}

// DeleteCheckpoint removes all checkpoint data for a thread
func (c *FileCheckpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	threadDir, err := c.threadDir(threadID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(threadDir); err != nil {
		return fmt.Errorf("failed to delete thread directory: %w", err)
	}
	return nil
}

// ListThreads returns a summary of every thread with a readable checkpoint
func (c *FileCheckpointer) ListThreads(ctx context.Context) ([]*ThreadSummary, error) {
	entries, err := os.ReadDir(c.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*ThreadSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read threads directory: %w", err)
	}

	summaries := []*ThreadSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checkpoint, err := c.LoadCheckpoint(ctx, entry.Name())
		if err != nil || checkpoint == nil {
			// Skip threads we can't read
			continue
		}
		summaries = append(summaries, SummarizeCheckpoint(checkpoint))
	}

	SortSummaries(summaries)
	return summaries, nil
}

func (c *FileCheckpointer) threadDir(threadID string) (string, error) {
	if threadID == "" || threadID == "." || threadID == ".." ||
		strings.ContainsAny(threadID, `/\`) {
		return "", NewStateError("invalid thread id %q", threadID)
	}
	return filepath.Join(c.dataDir, threadID), nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".latest-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
