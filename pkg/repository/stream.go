package repository

import (
	"context"
	"iter"
)

// Cursor is a store-side handle over a streamed result set. *mongo.Cursor satisfies it.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// OpenFunc executes the query and returns its cursor.
type OpenFunc func(ctx context.Context) (Cursor, error)

// DecodeFunc reconstructs one aggregate from the current cursor position.
type DecodeFunc[T any] func(ctx context.Context, cursor Cursor) (*T, error)

// Stream is a lazy, single-pass sequence of aggregates. Nothing is executed until the first
// call to Next. Close releases the cursor and must run on every exit path; All does it for
// range loops.
type Stream[T any] struct {
	open    OpenFunc
	decode  DecodeFunc[T]
	cursor  Cursor
	current *T
	err     error
	started bool
	closed  bool
}

// NewStream creates a stream opening its cursor with open and decoding with decode.
func NewStream[T any](open OpenFunc, decode DecodeFunc[T]) *Stream[T] {
	return &Stream[T]{open: open, decode: decode}
}

// Next advances to the next aggregate. It returns false when the results are exhausted,
// the stream is closed, or an error occurred (see Err).
func (s *Stream[T]) Next(ctx context.Context) bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		cursor, err := s.open(ctx)
		if err != nil {
			s.err = err
			return false
		}
		s.cursor = cursor
	}
	// An open without a cursor has no results.
	if s.cursor == nil {
		return false
	}
	if !s.cursor.Next(ctx) {
		s.err = s.cursor.Err()
		s.current = nil
		return false
	}
	entity, err := s.decode(ctx, s.cursor)
	if err != nil {
		s.err = err
		s.current = nil
		return false
	}
	s.current = entity
	return true
}

// Entity returns the aggregate at the current position.
func (s *Stream[T]) Entity() *T {
	return s.current
}

// Err returns the error that stopped iteration, if any.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the cursor. It is idempotent and still runs when ctx is already canceled.
func (s *Stream[T]) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.current = nil
	if s.cursor == nil {
		return nil
	}
	return s.cursor.Close(context.WithoutCancel(ctx))
}

// All ranges over the stream and closes it when the loop ends, including on break. An
// iteration error is yielded once as the last element.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		defer s.Close(ctx)
		for s.Next(ctx) {
			if !yield(s.current, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

// Collect drains the stream into a slice and closes it.
func (s *Stream[T]) Collect(ctx context.Context) ([]*T, error) {
	var out []*T
	for entity, err := range s.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, entity)
	}
	return out, nil
}
