// Package booking implements the appointment booking flow: select a doctor
// for a free-text request, ask a human to confirm the choice, then schedule
// the appointment.
package booking

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/deepnoodle-ai/hitl"
	"github.com/deepnoodle-ai/hitl/completion"
)

const WorkflowName = "appointment"

// Step names
const (
	StepSelectDoctor        = "select_doctor"
	StepHumanReview         = "human_review"
	StepScheduleAppointment = "schedule_appointment"
)

// State keys
const (
	KeyRequest            = "request"
	KeyDoctorDetails      = "doctor_details"
	KeyAppointmentDetails = "appointment_details"
)

// ReviewQuestion is asked before an appointment is scheduled.
const ReviewQuestion = "Are you okay with this doctor? (yes/no)"

// Options configures the booking workflow.
type Options struct {
	Client    completion.Client
	Directory *Directory
	Logger    *slog.Logger
}

type steps struct {
	client    completion.Client
	directory *Directory
	logger    *slog.Logger
}

// New returns the booking workflow. Its entry step is StepSelectDoctor.
func New(opts Options) (*hitl.Workflow, error) {
	if opts.Client == nil {
		return nil, hitl.NewConfigError("completion client required")
	}
	if opts.Directory == nil {
		opts.Directory = DefaultDirectory()
	}
	if err := opts.Directory.Validate(); err != nil {
		return nil, hitl.NewConfigError("invalid directory: %v", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &steps{
		client:    opts.Client,
		directory: opts.Directory,
		logger:    opts.Logger,
	}
	return hitl.New(hitl.Options{
		Name:        WorkflowName,
		Description: "Select a doctor, confirm with a human, schedule an appointment",
		Steps: []*hitl.Step{
			{Name: StepSelectDoctor, Description: "Choose a doctor for the request", Func: s.selectDoctor},
			{Name: StepHumanReview, Description: "Ask the user to confirm the doctor", Func: s.humanReview},
			{Name: StepScheduleAppointment, Description: "Schedule with the chosen doctor", Func: s.scheduleAppointment},
		},
		Entry: StepSelectDoctor,
	})
}

// InitialState returns the starting state for a booking request.
func InitialState(request string) hitl.State {
	return hitl.State{KeyRequest: request}
}

func (s *steps) selectDoctor(ctx hitl.Context, state hitl.State) (hitl.Directive, error) {
	request := state.Value(KeyRequest)
	if strings.TrimSpace(request) == "" {
		return hitl.Directive{}, hitl.NewStateError("%s requires %q", StepSelectDoctor, KeyRequest)
	}
	ctx.Logger().Info("running doctor selection")

	prompt, err := s.directory.SelectionPrompt(request)
	if err != nil {
		return hitl.Directive{}, err
	}
	details, err := s.complete(ctx, prompt)
	if err != nil {
		return hitl.Directive{}, err
	}
	return hitl.Goto(StepHumanReview, hitl.State{KeyDoctorDetails: details}), nil
}

func (s *steps) humanReview(ctx hitl.Context, state hitl.State) (hitl.Directive, error) {
	details, ok := state.Get(KeyDoctorDetails)
	if !ok {
		details = "No doctor found."
	}
	ctx.Logger().Info("doctor suggested for appointment", "doctor_details", details)

	answer, err := hitl.Interrupt(ctx, ReviewQuestion)
	if err != nil {
		return hitl.Directive{}, err
	}
	if Approved(answer) {
		return hitl.Goto(StepScheduleAppointment, nil), nil
	}
	ctx.Logger().Info("doctor declined", "answer", answer)
	return hitl.Finish(nil), nil
}

func (s *steps) scheduleAppointment(ctx hitl.Context, state hitl.State) (hitl.Directive, error) {
	details, ok := state.Get(KeyDoctorDetails)
	if !ok {
		return hitl.Directive{}, hitl.NewStateError("%s requires %q", StepScheduleAppointment, KeyDoctorDetails)
	}
	ctx.Logger().Info("scheduling appointment")

	prompt, err := s.directory.SchedulePrompt(details)
	if err != nil {
		return hitl.Directive{}, err
	}
	appointment, err := s.complete(ctx, prompt)
	if err != nil {
		return hitl.Directive{}, err
	}
	return hitl.Finish(hitl.State{KeyAppointmentDetails: appointment}), nil
}

func (s *steps) complete(ctx hitl.Context, prompt string) (string, error) {
	text, err := s.client.Complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		return "", hitl.NewUpstreamError("completion failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", hitl.NewUpstreamError("completion failed", completion.ErrEmptyCompletion)
	}
	return text, nil
}

// Approved reports whether a review answer accepts the doctor. Only "yes",
// ignoring case and surrounding whitespace, counts.
func Approved(answer string) bool {
	return strings.ToLower(strings.TrimSpace(answer)) == "yes"
}
