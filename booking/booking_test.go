package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/completion"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fakeClient answers selection prompts with a doctor and scheduling prompts
// with an appointment, recording every prompt it receives.
type fakeClient struct {
	mutex   sync.Mutex
	prompts []string
	err     error
}

func (c *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if strings.Contains(prompt, "Select the best doctor") {
		return "Goutam Tak - dermatology expert", nil
	}
	return "Wednesday 4 PM with Goutam Tak", nil
}

func (c *fakeClient) calls() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.prompts)
}

func newTestExecutor(t *testing.T, client *fakeClient, checkpointer hitl.Checkpointer) *hitl.Executor {
	t.Helper()
	wf, err := New(Options{Client: client})
	require.NoError(t, err)
	executor, err := hitl.NewExecutor(hitl.ExecutorOptions{
		Workflow:     wf,
		Checkpointer: checkpointer,
	})
	require.NoError(t, err)
	return executor
}

const acneRequest = "I have acne on my face and would like to book an appointment with a doctor."

func TestBookingApproved(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)
	ctx := context.Background()

	result, err := executor.Run(ctx, "session_1", InitialState(acneRequest))
	require.NoError(t, err)
	require.True(t, result.Suspended())
	require.Equal(t, ReviewQuestion, result.Question())
	require.Equal(t, "Goutam Tak - dermatology expert", result.State.Value(KeyDoctorDetails))
	require.False(t, result.State.Has(KeyAppointmentDetails))

	result, err = executor.Resume(ctx, "session_1", "yes")
	require.NoError(t, err)
	require.Equal(t, hitl.ThreadStatusCompleted, result.Status)
	require.Equal(t, acneRequest, result.State.Value(KeyRequest))
	require.Equal(t, "Goutam Tak - dermatology expert", result.State.Value(KeyDoctorDetails))
	require.Equal(t, "Wednesday 4 PM with Goutam Tak", result.State.Value(KeyAppointmentDetails))
	require.Equal(t, 2, client.calls())
}

func TestBookingDeclined(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)
	ctx := context.Background()

	_, err := executor.Run(ctx, "session_1", InitialState(acneRequest))
	require.NoError(t, err)

	result, err := executor.Resume(ctx, "session_1", "no")
	require.NoError(t, err)
	require.Equal(t, hitl.ThreadStatusCompleted, result.Status)
	require.True(t, result.State.Has(KeyDoctorDetails))
	require.False(t, result.State.Has(KeyAppointmentDetails))
	require.Equal(t, 1, client.calls())

	// The decline is permanent for the thread
	result, err = executor.Run(ctx, "session_1", nil)
	require.NoError(t, err)
	require.False(t, result.State.Has(KeyAppointmentDetails))
	_, err = executor.Resume(ctx, "session_1", "yes")
	require.True(t, hitl.IsStateError(err))
	require.Equal(t, 1, client.calls())
}

func TestBookingResumeUnknownThread(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)

	_, err := executor.Resume(context.Background(), "never-started", "yes")
	require.True(t, hitl.IsStateError(err))
	require.Equal(t, 0, client.calls())
}

func TestBookingUpstreamFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("503 service unavailable")}
	checkpointer := hitl.NewMemoryCheckpointer()
	executor := newTestExecutor(t, client, checkpointer)
	ctx := context.Background()

	_, err := executor.Run(ctx, "session_1", InitialState(acneRequest))
	require.True(t, hitl.IsUpstreamError(err))

	checkpoint, err := checkpointer.LoadCheckpoint(ctx, "session_1")
	require.NoError(t, err)
	require.Equal(t, StepSelectDoctor, checkpoint.PendingStep)
	require.False(t, checkpoint.State.Has(KeyDoctorDetails))

	// Retrying once the service recovers picks up at the same step
	client.mutex.Lock()
	client.err = nil
	client.mutex.Unlock()

	result, err := executor.Run(ctx, "session_1", nil)
	require.NoError(t, err)
	require.True(t, result.Suspended())
	require.Equal(t, acneRequest, result.State.Value(KeyRequest))
}

func TestBookingEmptyCompletion(t *testing.T) {
	wf, err := New(Options{Client: completion.Func(func(ctx context.Context, prompt string) (string, error) {
		return "  ", nil
	})})
	require.NoError(t, err)
	executor, err := hitl.NewExecutor(hitl.ExecutorOptions{Workflow: wf})
	require.NoError(t, err)

	_, err = executor.Run(context.Background(), "t1", InitialState(acneRequest))
	require.True(t, hitl.IsUpstreamError(err))
}

func TestBookingRequiresRequest(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)

	_, err := executor.Run(context.Background(), "t1", hitl.State{})
	require.True(t, hitl.IsStateError(err))
	require.Equal(t, 0, client.calls())
}

func TestBookingRetryAfterMissingRequest(t *testing.T) {
	client := &fakeClient{}
	checkpointer := hitl.NewMemoryCheckpointer()
	executor := newTestExecutor(t, client, checkpointer)
	ctx := context.Background()

	_, err := executor.Run(ctx, "t1", hitl.State{})
	require.True(t, hitl.IsStateError(err))

	result, err := executor.Run(ctx, "t1", InitialState(acneRequest))
	require.NoError(t, err)
	require.True(t, result.Suspended())
	require.Equal(t, ReviewQuestion, result.Question())
	require.Equal(t, acneRequest, result.State.Value(KeyRequest))
	require.Equal(t, 1, client.calls())
}

func TestBookingRerunBeforeResumeIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)
	ctx := context.Background()

	first, err := executor.Run(ctx, "session_1", InitialState(acneRequest))
	require.NoError(t, err)
	second, err := executor.Run(ctx, "session_1", InitialState("something else"))
	require.NoError(t, err)

	require.Equal(t, first.Question(), second.Question())
	require.Equal(t, first.State, second.State)
	require.Equal(t, 1, client.calls())
}

func TestBookingAnswerNormalization(t *testing.T) {
	tests := []struct {
		answer    string
		scheduled bool
	}{
		{"yes", true},
		{"  YES ", true},
		{"Yes\n", true},
		{"no", false},
		{"y", false},
		{"yes please", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.answer), func(t *testing.T) {
			client := &fakeClient{}
			executor := newTestExecutor(t, client, nil)
			ctx := context.Background()

			_, err := executor.Run(ctx, "t1", InitialState(acneRequest))
			require.NoError(t, err)
			result, err := executor.Resume(ctx, "t1", tt.answer)
			require.NoError(t, err)
			require.Equal(t, tt.scheduled, result.State.Has(KeyAppointmentDetails))
			require.Equal(t, tt.scheduled, Approved(tt.answer))
		})
	}
}

func TestBookingConcurrentThreads(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, hitl.NewMemoryCheckpointer())
	ctx := context.Background()

	const threads = 8
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < threads; i++ {
		threadID := fmt.Sprintf("thread-%d", i)
		answer := "no"
		if i%2 == 0 {
			answer = "yes"
		}
		g.Go(func() error {
			result, err := executor.Run(gctx, threadID, InitialState("request "+threadID))
			if err != nil {
				return err
			}
			if !result.Suspended() {
				return fmt.Errorf("%s: expected suspension", threadID)
			}
			result, err = executor.Resume(gctx, threadID, answer)
			if err != nil {
				return err
			}
			if result.State.Value(KeyRequest) != "request "+threadID {
				return fmt.Errorf("%s: state leaked between threads", threadID)
			}
			if result.State.Has(KeyAppointmentDetails) != (answer == "yes") {
				return fmt.Errorf("%s: unexpected appointment state", threadID)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, threads+threads/2, client.calls())
}

func TestBookingPromptsEmbedDirectory(t *testing.T) {
	client := &fakeClient{}
	executor := newTestExecutor(t, client, nil)
	ctx := context.Background()

	_, err := executor.Run(ctx, "t1", InitialState(acneRequest))
	require.NoError(t, err)
	_, err = executor.Resume(ctx, "t1", "yes")
	require.NoError(t, err)

	require.Len(t, client.prompts, 2)
	require.Contains(t, client.prompts[0], acneRequest)
	require.Contains(t, client.prompts[0], "Dermatology Expert with 10 years of experience.")
	require.Contains(t, client.prompts[1], "Goutam Tak - dermatology expert")
	require.Contains(t, client.prompts[1], "Available Wed–Sat 4 PM–6 PM.")
}

func TestBookingScheduleRequiresDoctorDetails(t *testing.T) {
	client := &fakeClient{}
	wf, err := New(Options{Client: client})
	require.NoError(t, err)
	require.NoError(t, wf.SetEntry(StepScheduleAppointment))
	executor, err := hitl.NewExecutor(hitl.ExecutorOptions{Workflow: wf})
	require.NoError(t, err)

	_, err = executor.Run(context.Background(), "t1", InitialState(acneRequest))
	require.True(t, hitl.IsStateError(err))
	require.Equal(t, 0, client.calls())
}

func TestBookingReviewWithoutDoctorDetails(t *testing.T) {
	client := &fakeClient{}
	wf, err := New(Options{Client: client})
	require.NoError(t, err)
	require.NoError(t, wf.SetEntry(StepHumanReview))
	executor, err := hitl.NewExecutor(hitl.ExecutorOptions{Workflow: wf})
	require.NoError(t, err)

	result, err := executor.Run(context.Background(), "t1", hitl.State{})
	require.NoError(t, err)
	require.Equal(t, ReviewQuestion, result.Question())
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Options{})
	require.True(t, hitl.IsConfigError(err))

	_, err = New(Options{Client: &fakeClient{}, Directory: &Directory{}})
	require.True(t, hitl.IsConfigError(err))
}
