package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryRequired is returned when a gateway is built without a registry.
	ErrRegistryRequired = errors.New("limit registry required")

	// ErrInvalidLimits is returned when a model's limits cannot admit any call.
	ErrInvalidLimits = errors.New("invalid model limits")
)

// UnknownModelError reports a permit request for a model with no configured
// limits. It is a configuration error and never worth retrying.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("no rate limits configured for model %q", e.Model)
}
