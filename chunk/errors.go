package chunk

import "errors"

var (
	// ErrCounterRequired is returned when no token counter is provided.
	ErrCounterRequired = errors.New("token counter is required")

	// ErrInvalidMaxTokens is returned for a non-positive token ceiling.
	ErrInvalidMaxTokens = errors.New("max tokens must be positive")

	// ErrInvalidOverlap is returned for a negative sentence overlap.
	ErrInvalidOverlap = errors.New("overlap cannot be negative")
)
