/*
errors.go - Typed faults raised by the engine

PURPOSE:
  The engine assumes validated input. When a precondition turns out to be
  broken mid-run (a consecutive link that resolves to nothing, a required
  date missing its prerequisite), the run stops and the fault propagates to
  the caller. The engine never classifies faults for end users; that is the
  hosting service's job.

USAGE:
  if errors.Is(err, calc.ErrConsecutiveCycle) { ... }
  if calc.IsInvariantViolation(err) { ... }
*/
package calc

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoSentences is returned when a booking contains no sentences.
	ErrNoSentences = errors.New("booking has no sentences")

	// ErrUnknownConsecutiveLink is returned when a sentence's consecutive
	// link does not resolve to any sentence in the booking.
	ErrUnknownConsecutiveLink = errors.New("consecutive link references unknown sentence")

	// ErrConsecutiveCycle is returned when a sentence appears in its own
	// consecutive chain, directly or transitively.
	ErrConsecutiveCycle = errors.New("consecutive chain contains a cycle")

	// ErrMissingPrerequisiteDate is returned when classification requires a
	// release date type whose prerequisite computed date is absent.
	ErrMissingPrerequisiteDate = errors.New("release date missing prerequisite computed date")

	// ErrNegativeDuration is returned when a sentence duration measures to
	// fewer than zero days.
	ErrNegativeDuration = errors.New("sentence duration is negative")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvariantError wraps a sentinel with the sentence and operation involved.
type InvariantError struct {
	Op         string
	SentenceID string
	Err        error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: sentence %s: %v", e.Op, e.SentenceID, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

func invariant(op, sentenceID string, err error) error {
	return &InvariantError{Op: op, SentenceID: sentenceID, Err: err}
}

// IsInvariantViolation reports whether err is a fatal input precondition
// failure rather than an infrastructure error.
func IsInvariantViolation(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
