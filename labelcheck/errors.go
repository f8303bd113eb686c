package labelcheck

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a batch that violates the evaluator's
	// preconditions. The whole call fails; no example is scored.
	ErrInvalidInput = errors.New("labelcheck: invalid input")

	// ErrDimensionMismatch is returned when embeddings in one batch differ
	// in length.
	ErrDimensionMismatch = errors.New("labelcheck: embedding dimension mismatch")

	// ErrMissingEmbedding is returned when clustering is asked to run on an
	// example that has not been embedded.
	ErrMissingEmbedding = errors.New("labelcheck: missing embedding")
)

// InputError describes the first precondition violation found in a batch.
type InputError struct {
	Index  int
	ID     string
	Reason string
}

func (e *InputError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("labelcheck: example %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("labelcheck: example %d (%s): %s", e.Index, e.ID, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
