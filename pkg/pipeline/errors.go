package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies what went wrong inside a stage.
type ErrorKind string

const (
	// KindValidation - bad or empty input, caught before any
	// collaborator call.
	KindValidation ErrorKind = "validation"
	// KindPrecondition - a required earlier artifact is missing. Seeing
	// one of these means the stage sequencing itself is broken.
	KindPrecondition ErrorKind = "precondition"
	// KindCollaborator - an external engine failed.
	KindCollaborator ErrorKind = "collaborator"
	// KindParse - malformed structured response from a collaborator.
	KindParse ErrorKind = "parse"
)

// StageError is the single failure signal a stage executor raises. The
// orchestrator matches on it to seal the run; it never escapes the
// orchestrator boundary.
type StageError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

// Unwrap implements the errors.Unwrap interface.
func (e *StageError) Unwrap() error {
	return e.Err
}

func newValidationError(stage Stage, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func newPreconditionError(stage Stage, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Kind: KindPrecondition, Err: fmt.Errorf(format, args...)}
}

func newCollaboratorError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindCollaborator, Err: err}
}

// AsStageError extracts a StageError from an error chain.
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if err != nil && errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}

// intoStageError tags an arbitrary failure with the stage it escaped
// from, leaving already-tagged errors alone.
func intoStageError(stage Stage, err error) *StageError {
	if stageErr, ok := AsStageError(err); ok {
		return stageErr
	}
	return newCollaboratorError(stage, err)
}
