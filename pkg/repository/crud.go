package repository

import (
	"context"

	"github.com/nimburion/docspec/pkg/specification"
)

// Reader provides read operations for aggregates.
type Reader[T any, ID comparable] interface {
	// Get returns a lazy stream over the aggregates matching spec. The query runs on the
	// first call to Next; the caller must Close the stream.
	Get(ctx context.Context, spec specification.Specification, opts ...Option) (*Stream[T], error)
	// GetByID returns the aggregate identified by id. A missing aggregate is reported
	// through the boolean, not as an error.
	GetByID(ctx context.Context, id ID) (*T, bool, error)
	Contains(ctx context.Context, spec specification.Specification) (bool, error)
	ContainsID(ctx context.Context, id ID) (bool, error)
	Count(ctx context.Context, spec specification.Specification) (int64, error)
	Size(ctx context.Context) (int64, error)
}

// Writer provides write operations for aggregates.
type Writer[T any, ID comparable] interface {
	// Add inserts a new aggregate, failing with ErrAlreadyExists on an identity collision.
	Add(ctx context.Context, entity *T) error
	// Update merges entity into the stored aggregate, failing with ErrNotFound when absent.
	Update(ctx context.Context, entity *T) (*T, error)
	AddOrUpdate(ctx context.Context, entity *T) (*T, error)
	// Remove deletes every aggregate matching spec and returns how many were deleted.
	Remove(ctx context.Context, spec specification.Specification) (int64, error)
	// RemoveByID deletes exactly one aggregate.
	RemoveByID(ctx context.Context, id ID) error
	// Clear drops all indexes and data. It is not transactional.
	Clear(ctx context.Context) error
}

// Repository combines Reader and Writer.
type Repository[T any, ID comparable] interface {
	Reader[T, ID]
	Writer[T, ID]
}
