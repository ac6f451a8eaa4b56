package domain

import "fmt"

// ContextState is the per-context position in the publish state machine.
type ContextState string

const (
	StatePending          ContextState = "pending"
	StateSkipped          ContextState = "skipped"
	StateEnvironmentReady ContextState = "environment_ready"
	StatePackaged         ContextState = "packaged"
	StateUploaded         ContextState = "uploaded"
	StateFailed           ContextState = "failed"
)

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s ContextState) bool {
	switch s {
	case StateSkipped, StateUploaded, StateFailed:
		return true
	default:
		return false
	}
}

// Transition validates a single state-machine step and returns the new state.
// The caller supplies the current state so invalid sequencing is observable
// rather than silently absorbed.
func Transition(from, to ContextState) (ContextState, error) {
	if !allowedTransition(from, to) {
		return from, fmt.Errorf("disallowed context transition: %s -> %s", from, to)
	}
	return to, nil
}

func allowedTransition(from, to ContextState) bool {
	// Any non-terminal state may fail.
	if to == StateFailed {
		return !IsTerminal(from)
	}
	switch from {
	case StatePending:
		return to == StateSkipped || to == StateEnvironmentReady
	case StateEnvironmentReady:
		return to == StatePackaged
	case StatePackaged:
		return to == StateUploaded
	default:
		return false
	}
}
