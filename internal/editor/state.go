package editor

import (
	"errors"
	"fmt"
	"slices"
)

// State is the editor's top level mode.
type State int

const (
	StateInitial State = iota
	StateCamera
	StateUploading
	StateEditor
	StateRemovingBackground
	StateSaving
	StateSaved
	StateCancelled
)

var stateNames = [...]string{
	StateInitial:            "initial",
	StateCamera:             "camera",
	StateUploading:          "uploading",
	StateEditor:             "editor",
	StateRemovingBackground: "removing-background",
	StateSaving:             "saving",
	StateSaved:              "saved",
	StateCancelled:          "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateSaved || s == StateCancelled }

// Busy reports whether the editor is waiting on a camera, decode or
// background removal and rejects conflicting input.
func (s State) Busy() bool {
	return s == StateUploading || s == StateRemovingBackground || s == StateSaving
}

var transitions = map[State][]State{
	StateInitial:            {StateCamera, StateUploading, StateEditor, StateCancelled},
	StateCamera:             {StateEditor, StateInitial, StateCancelled},
	StateUploading:          {StateEditor, StateInitial, StateCancelled},
	StateEditor:             {StateCamera, StateUploading, StateRemovingBackground, StateSaving, StateInitial, StateCancelled},
	StateRemovingBackground: {StateEditor, StateCancelled},
	StateSaving:             {StateSaved, StateEditor},
}

// CanTransition reports whether the table allows moving from s to next.
func (s State) CanTransition(next State) bool {
	return slices.Contains(transitions[s], next)
}

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid editor transition")

// TransitionError describes a rejected state change.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid editor transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// fsm guards the state field. Callers hold the editor lock.
type fsm struct {
	state State
}

func (f *fsm) to(next State) error {
	if !f.state.CanTransition(next) {
		return &TransitionError{From: f.state, To: next}
	}
	f.state = next
	return nil
}

// require fails unless the current state is one of want.
func (f *fsm) require(want ...State) error {
	if slices.Contains(want, f.state) {
		return nil
	}
	return fmt.Errorf("%w: editor is %s", ErrNotReady, f.state)
}
