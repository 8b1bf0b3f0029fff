package hitl

import (
	"context"
)

// Checkpointer persists the latest checkpoint of each thread. Implementations
// must keep threads isolated: a save for one thread id never interleaves
// with or corrupts another thread's checkpoint.
type Checkpointer interface {
	// SaveCheckpoint saves the latest checkpoint for checkpoint.ThreadID
	SaveCheckpoint(ctx context.Context, checkpoint *Checkpoint) error

	// LoadCheckpoint loads the latest checkpoint for a thread. It returns
	// nil, nil when the thread has no checkpoint.
	LoadCheckpoint(ctx context.Context, threadID string) (*Checkpoint, error)

	// DeleteCheckpoint removes checkpoint data for a thread. The executor
	// never calls it; eviction is left to the caller.
	DeleteCheckpoint(ctx context.Context, threadID string) error
}

// ThreadLister is implemented by checkpointers that can enumerate threads.
type ThreadLister interface {
	ListThreads(ctx context.Context) ([]*ThreadSummary, error)
}
