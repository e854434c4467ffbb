package batch

import (
	"errors"
	"fmt"
)

// State is the batch-level lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateCancelled State = "cancelled"
)

// Stage is the per-file pipeline stage.
type Stage string

const (
	StageDiscovered   Stage = "discovered"
	StageExtracting   Stage = "extracting"
	StageTranscribing Stage = "transcribing"
	StageRendering    Stage = "rendering"
	StageDone         Stage = "done"
)

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("batch already running")

// isValidTransition enforces the batch state machine edges. Terminal
// states may start a new run.
func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateRunning
	case StateRunning:
		return to == StateCompleted || to == StateAborted || to == StateCancelled
	case StateCompleted, StateAborted, StateCancelled:
		return to == StateRunning
	default:
		return false
	}
}

// State returns the current batch state.
func (o *implOrchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *implOrchestrator) transition(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateRunning && to == StateRunning {
		return ErrAlreadyRunning
	}
	if !isValidTransition(o.state, to) {
		return fmt.Errorf("invalid transition: %s -> %s", o.state, to)
	}
	o.state = to
	return nil
}
