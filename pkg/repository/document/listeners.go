package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrValidation classifies aggregates rejected by a ValidatingListener.
var ErrValidation = errors.New("aggregate validation failed")

// Listener receives the lifecycle events of one repository. Each hook runs at most once per
// aggregate and phase, with the aggregate and its raw document. A persist hook error aborts
// the write; a load hook error aborts the read.
type Listener[T any] interface {
	// PrePersist runs after the aggregate is encoded and before it is written.
	PrePersist(ctx context.Context, entity *T, doc bson.Raw) error
	// PostPersist runs after a successful write.
	PostPersist(ctx context.Context, entity *T, doc bson.Raw) error
	// PreLoad runs before doc is decoded into the zero-valued entity.
	PreLoad(ctx context.Context, entity *T, doc bson.Raw) error
	// PostLoad runs after doc is decoded into entity.
	PostLoad(ctx context.Context, entity *T, doc bson.Raw) error
}

// BaseListener implements every hook as a no-op. Embed it to override only some phases.
type BaseListener[T any] struct{}

func (BaseListener[T]) PrePersist(context.Context, *T, bson.Raw) error  { return nil }
func (BaseListener[T]) PostPersist(context.Context, *T, bson.Raw) error { return nil }
func (BaseListener[T]) PreLoad(context.Context, *T, bson.Raw) error     { return nil }
func (BaseListener[T]) PostLoad(context.Context, *T, bson.Raw) error    { return nil }

// ValidatingListener rejects aggregates violating their `validate` struct tags before they
// are persisted.
type ValidatingListener[T any] struct {
	BaseListener[T]
	validate *validator.Validate
}

// NewValidatingListener creates a listener using a validator with required struct fields.
func NewValidatingListener[T any]() *ValidatingListener[T] {
	return &ValidatingListener[T]{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// PrePersist validates entity.
func (l *ValidatingListener[T]) PrePersist(ctx context.Context, entity *T, _ bson.Raw) error {
	if err := l.validate.StructCtx(ctx, entity); err != nil {
		var violations validator.ValidationErrors
		if errors.As(err, &violations) {
			return fmt.Errorf("%w: %s", ErrValidation, describeViolations(violations))
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func describeViolations(violations validator.ValidationErrors) string {
	msg := ""
	for i, v := range violations {
		if i > 0 {
			msg += "; "
		}
		if v.Param() != "" {
			msg += fmt.Sprintf("%s must satisfy %s=%s", v.Namespace(), v.Tag(), v.Param())
		} else {
			msg += fmt.Sprintf("%s must satisfy %s", v.Namespace(), v.Tag())
		}
	}
	return msg
}
