// SPDX-License-Identifier: MPL-2.0

package rebuild

import (
	"errors"
	"fmt"
)

const (
	// StateIdle means no rebuild is running.
	StateIdle State = iota
	// StateRebuilding means a rebuild pass or its settle check is in progress.
	StateRebuilding
	// StateRebuildingWithPending means a change arrived during the current
	// pass and exactly one follow-up pass will run.
	StateRebuildingWithPending
)

// ErrInvalidState is returned when a State value is not one of the defined states.
var ErrInvalidState = errors.New("invalid rebuild state")

type (
	// State is the coordinator's position in the rebuild state machine.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}

	// RebuildState is everything a rebuild pass depends on. It is owned by
	// a single Coordinator and only read or written under its lock.
	RebuildState struct {
		// InProgress is set while a pass or its settle check runs.
		InProgress bool
		// Pending is set by a change that arrives while InProgress is set
		// and consumed by the next settle check.
		Pending bool
		// IgnoringParenthesized drops entries named "(...)".
		IgnoringParenthesized bool
		// RootPath is the primary applications directory.
		RootPath string
		// SecondaryRootPath is merged into RootPath's category when set.
		SecondaryRootPath string
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRebuilding:
		return "rebuilding"
	case StateRebuildingWithPending:
		return "rebuilding-with-pending"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid rebuild state %d (valid: 0=idle, 1=rebuilding, 2=rebuilding-with-pending)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined states, or an error
// wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateIdle, StateRebuilding, StateRebuildingWithPending:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsBusy reports whether a rebuild is running.
func (s State) IsBusy() bool {
	return s == StateRebuilding || s == StateRebuildingWithPending
}
