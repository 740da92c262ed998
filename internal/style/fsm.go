package style

import (
	"fmt"
	"sync"
)

// FlowState represents where the styling flow for one profile currently is.
type FlowState string

const (
	// StateIdle means no styling activity; the panel shows the current banner.
	StateIdle FlowState = "idle"
	// StatePromptEntry means the styling panel is open and waiting for a prompt.
	StatePromptEntry FlowState = "prompt_entry"
	// StateGenerating means a generation request is in flight.
	StateGenerating FlowState = "generating"
	// StateError means the last generation failed and the error is on display.
	StateError FlowState = "error"
)

// validTransitions lists the allowed moves. Anything else is a guard
// violation.
var validTransitions = map[FlowState][]FlowState{
	StateIdle:        {StatePromptEntry},
	StatePromptEntry: {StateGenerating, StateIdle},
	StateGenerating:  {StateIdle, StateError},
	StateError:       {StatePromptEntry, StateIdle},
}

// Flow is the styling panel's state machine for a single profile. Safe for
// concurrent use.
type Flow struct {
	mu    sync.Mutex
	state FlowState
}

func NewFlow() *Flow {
	return &Flow{state: StateIdle}
}

// State returns the current state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Transition moves the flow to next, failing when the move is not allowed
// from the current state.
func (f *Flow) Transition(next FlowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, allowed := range validTransitions[f.state] {
		if next == allowed {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid styling transition from %s to %s", f.state, next)
}

// OpenPrompt opens the styling panel.
func (f *Flow) OpenPrompt() error { return f.Transition(StatePromptEntry) }

// BeginGeneration marks a generation request as in flight. It fails when one
// already is, so a second request cannot interleave.
func (f *Flow) BeginGeneration() error { return f.Transition(StateGenerating) }

// FinishGeneration records the outcome of the in-flight request.
func (f *Flow) FinishGeneration(succeeded bool) error {
	if succeeded {
		return f.Transition(StateIdle)
	}
	return f.Transition(StateError)
}

// Dismiss closes the panel or clears a displayed error.
func (f *Flow) Dismiss() error { return f.Transition(StateIdle) }
