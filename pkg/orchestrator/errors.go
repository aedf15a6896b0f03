package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel taxonomy per the error handling design: ValidationError and
// UpstreamFailure/Timeout are distinguished by wrapper type below;
// InvalidState and QueueFull live in pkg/jobstore and pkg/queue
// respectively, which own those states.
var (
	// ErrValidation marks a request or scenario that failed an invariant
	// check. Validation runs inside CreateRoom, so the job has already been
	// marked PROCESSING by its worker and ends FAILED.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream marks a rejected or malformed response from the LLM or
	// mesh provider. Fatal for scenario/script generation; partial
	// (aggregated into failed_models) for a single model.
	ErrUpstream = errors.New("upstream provider failure")

	// ErrStageTimeout marks a per-stage deadline exceeded. Fatal for the
	// script batch stage; partial for model generation.
	ErrStageTimeout = errors.New("stage deadline exceeded")
)

// ValidationError wraps a single violated invariant with a human-readable
// rule description.
type ValidationError struct {
	Rule string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Rule)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(rule string) *ValidationError {
	return &ValidationError{Rule: rule}
}

// UpstreamError wraps a fatal LLM/mesh failure for a given stage.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstream, e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

func newUpstreamError(stage string, err error) *UpstreamError {
	return &UpstreamError{Stage: stage, Err: err}
}
