package hitl

import (
	"sort"
	"time"
)

// ThreadSummary provides a summary view of a thread
type ThreadSummary struct {
	ThreadID     string        `json:"thread_id"`
	WorkflowName string        `json:"workflow_name"`
	Status       ThreadStatus  `json:"status"`
	PendingStep  string        `json:"pending_step,omitempty"`
	StepCount    int           `json:"step_count"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time,omitzero"`
	Duration     time.Duration `json:"duration"`
}

// SummarizeCheckpoint creates a summary from a thread's latest checkpoint
func SummarizeCheckpoint(checkpoint *Checkpoint) *ThreadSummary {
	return &ThreadSummary{
		ThreadID:     checkpoint.ThreadID,
		WorkflowName: checkpoint.WorkflowName,
		Status:       checkpoint.Status,
		PendingStep:  checkpoint.PendingStep,
		StepCount:    checkpoint.StepCount,
		StartTime:    checkpoint.StartTime,
		EndTime:      checkpoint.EndTime,
		Duration:     checkpointDuration(checkpoint),
	}
}

// SortSummaries orders summaries newest first
func SortSummaries(summaries []*ThreadSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
}

func checkpointDuration(checkpoint *Checkpoint) time.Duration {
	if !checkpoint.EndTime.IsZero() {
		return checkpoint.EndTime.Sub(checkpoint.StartTime)
	}
	// Still running or suspended
	return checkpoint.CheckpointAt.Sub(checkpoint.StartTime)
}
