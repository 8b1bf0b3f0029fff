// Package checkpointtest provides a conformance suite for hitl.Checkpointer
// implementations.
package checkpointtest

import (
	"context"
	"testing"
	"time"

	"github.com/deepnoodle-ai/hitl"
	"github.com/stretchr/testify/require"
)

// Run exercises a checkpointer against the behavior the executor relies on.
// The checkpointer must start empty.
func Run(t *testing.T, checkpointer hitl.Checkpointer) {
	t.Helper()
	ctx := context.Background()

	t.Run("load missing thread", func(t *testing.T) {
		checkpoint, err := checkpointer.LoadCheckpoint(ctx, "missing")
		require.NoError(t, err)
		require.Nil(t, checkpoint)
	})

	t.Run("save and load", func(t *testing.T) {
		start := time.Now().UTC().Truncate(time.Millisecond)
		saved := &hitl.Checkpoint{
			ID:           hitl.NewCheckpointID(),
			ThreadID:     "thread-save",
			WorkflowName: "appointment",
			Status:       hitl.ThreadStatusSuspended,
			State: hitl.State{
				"request":        "I need a cardiologist",
				"doctor_details": "Nikitha Vangale",
			},
			PendingStep:     "human_review",
			PendingQuestion: &hitl.InterruptRequest{Question: "Are you okay with this doctor? (yes/no)"},
			StepCount:       1,
			StartTime:       start,
			CheckpointAt:    start.Add(time.Second),
		}
		require.NoError(t, checkpointer.SaveCheckpoint(ctx, saved))

		loaded, err := checkpointer.LoadCheckpoint(ctx, "thread-save")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		require.Equal(t, saved.ID, loaded.ID)
		require.Equal(t, saved.WorkflowName, loaded.WorkflowName)
		require.Equal(t, saved.Status, loaded.Status)
		require.Equal(t, saved.State, loaded.State)
		require.Equal(t, saved.PendingStep, loaded.PendingStep)
		require.Equal(t, saved.PendingQuestion, loaded.PendingQuestion)
		require.Equal(t, saved.StepCount, loaded.StepCount)
		require.True(t, saved.StartTime.Equal(loaded.StartTime))
		require.True(t, loaded.Suspended())
	})

	t.Run("save overwrites latest", func(t *testing.T) {
		checkpoint := &hitl.Checkpoint{
			ID:          hitl.NewCheckpointID(),
			ThreadID:    "thread-overwrite",
			Status:      hitl.ThreadStatusRunning,
			State:       hitl.State{"request": "x"},
			PendingStep: "select_doctor",
			StartTime:   time.Now(),
		}
		require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))

		checkpoint.ID = hitl.NewCheckpointID()
		checkpoint.State = hitl.State{"request": "x", "appointment_details": "Saturday 9 AM"}
		checkpoint.PendingStep = ""
		checkpoint.Status = hitl.ThreadStatusCompleted
		checkpoint.EndTime = time.Now()
		require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))

		loaded, err := checkpointer.LoadCheckpoint(ctx, "thread-overwrite")
		require.NoError(t, err)
		require.Equal(t, checkpoint.ID, loaded.ID)
		require.True(t, loaded.Completed())
		require.Nil(t, loaded.PendingQuestion)
		require.Equal(t, "Saturday 9 AM", loaded.State.Value("appointment_details"))
	})

	t.Run("loaded checkpoints are independent", func(t *testing.T) {
		checkpoint := &hitl.Checkpoint{
			ID:       hitl.NewCheckpointID(),
			ThreadID: "thread-copy",
			State:    hitl.State{"a": "1"},
		}
		require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))
		checkpoint.State["a"] = "changed"

		loaded, err := checkpointer.LoadCheckpoint(ctx, "thread-copy")
		require.NoError(t, err)
		require.Equal(t, "1", loaded.State.Value("a"))
		loaded.State["a"] = "changed again"

		reloaded, err := checkpointer.LoadCheckpoint(ctx, "thread-copy")
		require.NoError(t, err)
		require.Equal(t, "1", reloaded.State.Value("a"))
	})

	t.Run("delete", func(t *testing.T) {
		checkpoint := &hitl.Checkpoint{
			ID:       hitl.NewCheckpointID(),
			ThreadID: "thread-delete",
			State:    hitl.State{},
		}
		require.NoError(t, checkpointer.SaveCheckpoint(ctx, checkpoint))
		require.NoError(t, checkpointer.DeleteCheckpoint(ctx, "thread-delete"))

		loaded, err := checkpointer.LoadCheckpoint(ctx, "thread-delete")
		require.NoError(t, err)
		require.Nil(t, loaded)

		// Deleting a missing thread is not an error
		require.NoError(t, checkpointer.DeleteCheckpoint(ctx, "thread-delete"))
	})

	lister, ok := checkpointer.(hitl.ThreadLister)
	if !ok {
		return
	}
	t.Run("list threads", func(t *testing.T) {
		summaries, err := lister.ListThreads(ctx)
		require.NoError(t, err)

		byID := map[string]*hitl.ThreadSummary{}
		for _, summary := range summaries {
			byID[summary.ThreadID] = summary
		}
		require.Contains(t, byID, "thread-save")
		require.Contains(t, byID, "thread-overwrite")
		require.NotContains(t, byID, "thread-delete")
		require.Equal(t, hitl.ThreadStatusSuspended, byID["thread-save"].Status)
		require.Equal(t, "human_review", byID["thread-save"].PendingStep)
		require.Equal(t, hitl.ThreadStatusCompleted, byID["thread-overwrite"].Status)

		for i := 1; i < len(summaries); i++ {
			require.False(t, summaries[i].StartTime.After(summaries[i-1].StartTime))
		}
	})
}
