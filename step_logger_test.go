package hitl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStepLogger(t *testing.T) {
	logger := NewFileStepLogger(t.TempDir())
	ctx := context.Background()

	history, err := logger.GetStepHistory(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, history)

	answer := "yes"
	require.NoError(t, logger.LogStep(ctx, &StepLogEntry{ID: NewStepLogID(), ThreadID: "t1", Step: "a", Question: "ok?"}))
	require.NoError(t, logger.LogStep(ctx, &StepLogEntry{ID: NewStepLogID(), ThreadID: "t1", Step: "a", Answer: &answer, Next: End}))
	require.NoError(t, logger.LogStep(ctx, &StepLogEntry{ID: NewStepLogID(), ThreadID: "t2", Step: "b", Error: "boom"}))

	history, err = logger.GetStepHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "ok?", history[0].Question)
	require.Equal(t, "yes", *history[1].Answer)

	history, err = logger.GetStepHistory(ctx, "t2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "boom", history[0].Error)
}

func TestNullStepLogger(t *testing.T) {
	logger := NewNullStepLogger()
	require.NoError(t, logger.LogStep(context.Background(), &StepLogEntry{ThreadID: "t1"}))
	history, err := logger.GetStepHistory(context.Background(), "t1")
	require.NoError(t, err)
	require.Nil(t, history)
}
