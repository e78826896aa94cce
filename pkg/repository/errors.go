package repository

import (
	"errors"
	"fmt"

	"github.com/nimburion/docspec/pkg/specification"
)

var (
	// ErrNotFound classifies operations targeting an aggregate that does not exist.
	ErrNotFound = errors.New("aggregate not found")
	// ErrAlreadyExists classifies inserts colliding with an existing identity.
	ErrAlreadyExists = errors.New("aggregate already exists")
	// ErrInvariantViolation classifies states that must be impossible, such as several
	// aggregates sharing one identity. It is never coerced into a success.
	ErrInvariantViolation = errors.New("repository invariant violated")
	// ErrInvalidOption classifies query options the store cannot honor.
	ErrInvalidOption = errors.New("invalid query option")
)

// IsConfigurationError reports whether err comes from a malformed specification or option.
func IsConfigurationError(err error) bool {
	return errors.Is(err, specification.ErrInvalidSpecification) || errors.Is(err, ErrInvalidOption)
}

// NotFoundError returns an ErrNotFound describing the aggregate.
func NotFoundError(aggregate string, id any, action string) error {
	return fmt.Errorf("%w: non-existent aggregate %s identified with %v cannot be %s",
		ErrNotFound, aggregate, id, action)
}

// InvariantError returns an ErrInvariantViolation describing the aggregate.
func InvariantError(aggregate string, id any, message string) error {
	return fmt.Errorf("%w: aggregate %s identified with %v: %s",
		ErrInvariantViolation, aggregate, id, message)
}
