package hitl

import "fmt"

// End is the terminal step name. A Directive whose Next is End finishes the
// thread.
const End = "__end__"

// StepFunc is a unit of work in a workflow. It receives a copy of the shared
// state and returns a Directive naming the next step and the fields to
// merge. A step that needs outside input raises an interrupt, either by
// returning the error from Interrupt or by setting Directive.Suspend.
//
// A suspended step is invoked again from the start when the thread is
// resumed, so any logic before the interrupt point must be safe to replay.
type StepFunc func(ctx Context, state State) (Directive, error)

// Directive is a step's declaration of where control flows next and what
// state changed.
type Directive struct {
	// Next is the name of the step to run next, or End.
	Next string `json:"next"`

	// Update is merged into the shared state by key overwrite.
	Update State `json:"update,omitempty"`

	// Suspend, when set, parks the thread with a pending question. Next and
	// Update are ignored.
	Suspend *InterruptRequest `json:"suspend,omitempty"`
}

// Goto returns a Directive moving to the named step with an optional update.
func Goto(next string, update State) Directive {
	return Directive{Next: next, Update: update}
}

// Finish returns a Directive ending the thread with an optional update.
func Finish(update State) Directive {
	return Directive{Next: End, Update: update}
}

// Suspend returns a Directive that parks the thread with a question.
func Suspend(question string) Directive {
	return Directive{Suspend: &InterruptRequest{Question: question}}
}

// InterruptRequest is raised by a step when it needs external input. It is
// consumed exactly once, when the thread is resumed with an answer.
type InterruptRequest struct {
	Question string `json:"question"`
}

// Error implements the error interface so a step can return the request
// produced by Interrupt directly.
func (r *InterruptRequest) Error() string {
	return fmt.Sprintf("interrupted: %s", r.Question)
}

// Interrupt returns the answer supplied by Resume when the current step is
// being re-invoked after a suspension. Otherwise it returns an
// *InterruptRequest error which the step must return unchanged:
//
//	answer, err := hitl.Interrupt(ctx, "Proceed? (yes/no)")
//	if err != nil {
//		return hitl.Directive{}, err
//	}
func Interrupt(ctx Context, question string) (string, error) {
	if answer, ok := ctx.Answer(); ok {
		return answer, nil
	}
	return "", &InterruptRequest{Question: question}
}
