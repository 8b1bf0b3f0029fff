package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/checkpointtest"
	"github.com/deepnoodle-ai/hitl/sqlite"
	"github.com/stretchr/testify/require"
)

func TestCheckpointer(t *testing.T) {
	checkpointer, err := sqlite.Open(filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { checkpointer.Close() })

	checkpointtest.Run(t, checkpointer)
}

func TestCheckpointerInMemory(t *testing.T) {
	checkpointer, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { checkpointer.Close() })

	checkpointtest.Run(t, checkpointer)
}

func TestCheckpointerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads.db")
	ctx := context.Background()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveCheckpoint(ctx, &hitl.Checkpoint{
		ID:              hitl.NewCheckpointID(),
		ThreadID:        "session_1",
		WorkflowName:    "appointment",
		Status:          hitl.ThreadStatusSuspended,
		State:           hitl.State{"request": "acne"},
		PendingStep:     "human_review",
		PendingQuestion: &hitl.InterruptRequest{Question: "ok?"},
	}))
	require.NoError(t, first.Close())

	second, err := sqlite.Open(path)
	require.NoError(t, err)
	defer second.Close()

	loaded, err := second.LoadCheckpoint(ctx, "session_1")
	require.NoError(t, err)
	require.True(t, loaded.Suspended())
	require.Equal(t, "acne", loaded.State.Value("request"))
}

func TestExecutorWithSQLite(t *testing.T) {
	checkpointer, err := sqlite.Open(filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	defer checkpointer.Close()

	wf, err := hitl.New(hitl.Options{
		Name: "confirm",
		Steps: []*hitl.Step{
			{Name: "ask", Func: func(ctx hitl.Context, state hitl.State) (hitl.Directive, error) {
				answer, err := hitl.Interrupt(ctx, "continue?")
				if err != nil {
					return hitl.Directive{}, err
				}
				return hitl.Finish(hitl.State{"answer": answer}), nil
			}},
		},
	})
	require.NoError(t, err)
	executor, err := hitl.NewExecutor(hitl.ExecutorOptions{Workflow: wf, Checkpointer: checkpointer})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := executor.Run(ctx, "t1", nil)
	require.NoError(t, err)
	require.Equal(t, "continue?", result.Question())

	result, err = executor.Resume(ctx, "t1", "yes")
	require.NoError(t, err)
	require.Equal(t, "yes", result.State.Value("answer"))
}
