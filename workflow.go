package hitl

import (
	"sort"
	"sync"
)

// Step pairs a step name with its function. It is used to declare steps
// through Options.
type Step struct {
	Name        string
	Description string
	Func        StepFunc
}

// Options are used to configure a workflow.
type Options struct {
	Name        string
	Description string
	Steps       []*Step

	// Entry names the first step. Defaults to the first entry in Steps.
	Entry string
}

// Workflow is an ordered registry of named steps plus the designated entry
// step. A Workflow is a definition only; an Executor runs it.
type Workflow struct {
	name        string
	description string
	steps       []*Step
	stepsByName map[string]*Step
	entry       string
	mutex       sync.RWMutex
}

// New returns a new Workflow configured with the given options.
func New(opts Options) (*Workflow, error) {
	if opts.Name == "" {
		return nil, NewConfigError("workflow name required")
	}
	w := &Workflow{
		name:        opts.Name,
		description: opts.Description,
		stepsByName: make(map[string]*Step, len(opts.Steps)),
	}
	for _, step := range opts.Steps {
		if step == nil {
			return nil, NewConfigError("step required")
		}
		if err := w.Register(step.Name, step.Func); err != nil {
			return nil, err
		}
		w.stepsByName[step.Name].Description = step.Description
	}
	entry := opts.Entry
	if entry == "" && len(opts.Steps) > 0 {
		entry = opts.Steps[0].Name
	}
	if entry != "" {
		if err := w.SetEntry(entry); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Register adds a step under a unique name.
func (w *Workflow) Register(name string, fn StepFunc) error {
	if name == "" {
		return NewConfigError("step name required")
	}
	if name == End {
		return NewConfigError("step name %q is reserved", End)
	}
	if fn == nil {
		return NewConfigError("step %q has no function", name)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, exists := w.stepsByName[name]; exists {
		return NewConfigError("step %q already registered", name)
	}
	step := &Step{Name: name, Func: fn}
	w.steps = append(w.steps, step)
	w.stepsByName[name] = step
	return nil
}

// SetEntry designates the first step to run.
func (w *Workflow) SetEntry(name string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, exists := w.stepsByName[name]; !exists {
		return NewConfigError("entry step %q not registered", name)
	}
	w.entry = name
	return nil
}

// Name returns the workflow name
func (w *Workflow) Name() string {
	return w.name
}

// Description returns the workflow description
func (w *Workflow) Description() string {
	return w.description
}

// Entry returns the entry step name, or "" if none is set.
func (w *Workflow) Entry() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.entry
}

// GetStep returns a step by name
func (w *Workflow) GetStep(name string) (*Step, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	step, ok := w.stepsByName[name]
	return step, ok
}

// Steps returns the steps in registration order
func (w *Workflow) Steps() []*Step {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	steps := make([]*Step, len(w.steps))
	copy(steps, w.steps)
	return steps
}

// StepNames returns the names of all steps in the workflow
func (w *Workflow) StepNames() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	names := make([]string, 0, len(w.stepsByName))
	for name := range w.stepsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks if the workflow is ready to run
func (w *Workflow) Validate() error {
	if w.name == "" {
		return NewConfigError("workflow name required")
	}
	if w.Entry() == "" {
		return NewConfigError("workflow %q has no entry step", w.name)
	}
	return nil
}
