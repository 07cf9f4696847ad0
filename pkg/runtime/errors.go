package runtime

import (
	"errors"

	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// PreconditionError is a hard failure that aborts the run. Refs, when set,
// is the page state the stage was looking at.
type PreconditionError struct {
	Stage   string
	Message string
	Refs    *snapshot.RefMap
}

func (e *PreconditionError) Error() string {
	if e.Stage == "" {
		return e.Message
	}
	return e.Stage + ": " + e.Message
}

// precondition builds a PreconditionError without page state.
func precondition(msg string) error {
	return &PreconditionError{Message: msg}
}

// missing reports an element that could not be resolved in refs.
func missing(what string, refs snapshot.RefMap) error {
	return &PreconditionError{Message: "Could not find " + what, Refs: &refs}
}

// asPrecondition returns err as a PreconditionError, wrapping foreign errors.
func asPrecondition(stage string, err error) *PreconditionError {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		if pe.Stage == "" {
			pe.Stage = stage
		}
		return pe
	}
	return &PreconditionError{Stage: stage, Message: err.Error()}
}
