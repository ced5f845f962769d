package domain

import (
	"errors"
	"fmt"
)

// ErrAllBackendsUnavailable is returned when neither retrieval backend
// produced results, leaving nothing to rank or generate from.
var ErrAllBackendsUnavailable = errors.New("all retrieval backends unavailable")

// ConfigurationError reports an invalid request or configuration detected
// before any backend call. It is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// BackendUnavailableError wraps a single retrieval backend failure. The
// pipeline degrades to the surviving backend when one remains; this type
// surfaces only when no backend survived.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// GenerationError reports a failed answer synthesis. It is fatal for the
// answer text but not for the source chunks, which the pipeline still
// returns alongside it.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
