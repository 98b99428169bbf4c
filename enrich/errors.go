package enrich

import "errors"

var (
	// ErrGeneratorRequired is returned when no text generator is configured.
	ErrGeneratorRequired = errors.New("generator is required")

	// ErrGatewayRequired is returned when no dispatch gateway is configured.
	ErrGatewayRequired = errors.New("gateway is required")

	// ErrInvalidPoolSize is returned for a non-positive pool size.
	ErrInvalidPoolSize = errors.New("pool size must be positive")

	// ErrInvalidTagResponse is returned when a tag response is not a tag list.
	ErrInvalidTagResponse = errors.New("invalid tag response")

	// ErrEmptyCatalogue is returned when a catalogue holds no transforms.
	ErrEmptyCatalogue = errors.New("catalogue has no transforms")
)
