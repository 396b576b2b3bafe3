package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential is returned when an operation requires a bearer
	// credential and none is available. Fatal for the attempted operation;
	// never retried and never sent to the network.
	ErrNoCredential = errors.New("no authentication credential")
	// ErrQuizNotFound indicates the requested quiz does not exist remotely.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates an answer referenced a question id that
	// is not part of the loaded question set. Callers treat this as a
	// programming error, not user input.
	ErrQuestionNotFound = errors.New("question not found in loaded set")
	// ErrOptionNotFound indicates a selected option key is not present in
	// the question's option map.
	ErrOptionNotFound = errors.New("option key not found")
	// ErrAlreadySubmitted is observed by whichever submission path loses the
	// race for the session's one-way latch.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
	// ErrNotAnswerable is returned for answer mutations outside an active attempt.
	ErrNotAnswerable = errors.New("no quiz attempt in progress")
	// ErrIncomplete rejects a manual submission while questions remain unanswered.
	ErrIncomplete = errors.New("not all questions answered")
)

// ValidationError marks locally detected malformed input. It is surfaced
// immediately and never reaches the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RemoteError wraps a failed or unreachable call to the quiz API.
type RemoteError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ImportError reports a bulk import that did not fully succeed. Imported
// counts records that reached the bank before/around the failures, so partial
// success is never conflated with total success.
type ImportError struct {
	Attempted int
	Imported  int
	Failures  []ImportFailure
}

// ImportFailure pins one failed record by its position in the import document.
type ImportFailure struct {
	Index      int
	QuestionID string
	Err        error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import: %d of %d records failed (first at index %d)",
		len(e.Failures), e.Attempted, e.Failures[0].Index)
}
