package hitl

import (
	"context"
	"sync"
)

// MemoryCheckpointer keeps the latest checkpoint of each thread in memory
// for the lifetime of the process. Checkpoints are copied on the way in and
// out so callers never share state with the store.
type MemoryCheckpointer struct {
	checkpoints map[string]*Checkpoint
	mutex       sync.RWMutex
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{checkpoints: map[string]*Checkpoint{}}
}

func (c *MemoryCheckpointer) SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checkpoints[checkpoint.ThreadID] = checkpoint.Copy()
	return nil
}

func (c *MemoryCheckpointer) LoadCheckpoint(ctx context.Context, threadID string) (*Checkpoint, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	checkpoint, ok := c.checkpoints[threadID]
	if !ok {
		return nil, nil
	}
	return checkpoint.Copy(), nil
}

func (c *MemoryCheckpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.checkpoints, threadID)
	return nil
}

func (c *MemoryCheckpointer) ListThreads(ctx context.Context) ([]*ThreadSummary, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	summaries := make([]*ThreadSummary, 0, len(c.checkpoints))
	for _, checkpoint := range c.checkpoints {
		summaries = append(summaries, SummarizeCheckpoint(checkpoint))
	}
	SortSummaries(summaries)
	return summaries, nil
}
