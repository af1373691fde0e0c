package model

import (
	"errors"
	"fmt"
)

// ErrBatchInFlight is returned when a batch generation is requested while a
// previous batch on the same assistant has not finished. The caller should
// wait and retry; the running batch is unaffected.
var ErrBatchInFlight = errors.New("answer batch already in flight")

// ErrNoAnswer is returned by operations that need an existing answer for a
// question (update, save-to-cache) when none has been generated yet.
var ErrNoAnswer = errors.New("no answer exists for question")

// APIError wraps a non-2xx completion-endpoint response so callers can
// inspect the status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion API HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion API HTTP %d", e.StatusCode)
}

// GenerationError records a per-question failure after the generator
// exhausted its retries. Collected into the batch error list; never aborts
// the batch.
type GenerationError struct {
	QuestionID string
	Question   string
	Attempts   int
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating answer for %q after %d attempts: %v", e.Question, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ValidationError reports profile fields required for the detected question
// set but missing from the user's profile. Surfaced to the caller, never
// retried.
type ValidationError struct {
	Missing         []string
	Recommendations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profile is missing required fields: %v", e.Missing)
}
