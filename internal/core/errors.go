package core

import (
	"errors"
	"fmt"
)

// ErrMissingSignal is returned by Analyze when no email signal is supplied.
// It is the only hard failure Analyze surfaces; every per-method failure
// inside an analysis degrades that method to non-decisive instead of
// aborting fusion.
var ErrMissingSignal = errors.New("email signal is required")

// ErrResultNotFound is returned by a ResultStore when no analysis has been
// persisted for the requested email.
var ErrResultNotFound = errors.New("analysis result not found")

// ErrRetrainInProgress is returned when a retrain is requested while
// another retrain is still running. Retrains are never interleaved; a
// partial artifact write would corrupt the served model.
var ErrRetrainInProgress = errors.New("retrain already in progress")

// ModelUnavailableError indicates that no trained artifacts exist and
// synchronous training itself failed. Prediction recovers it into a
// degraded verdict; an explicit Retrain surfaces it to the caller.
type ModelUnavailableError struct {
	Reason error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("classifier model unavailable: %v", e.Reason)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Reason
}
