// Package tracing provides OpenTelemetry tracing for document store operations.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced operation type.
type SpanOperation string

const (
	// SpanOperationDBQuery represents a find.
	SpanOperationDBQuery SpanOperation = "db.query"
	// SpanOperationDBCount represents a count or existence check.
	SpanOperationDBCount SpanOperation = "db.count"
	// SpanOperationDBInsert represents an insert.
	SpanOperationDBInsert SpanOperation = "db.insert"
	// SpanOperationDBUpdate represents an update or upsert.
	SpanOperationDBUpdate SpanOperation = "db.update"
	// SpanOperationDBDelete represents a delete.
	SpanOperationDBDelete SpanOperation = "db.delete"
	// SpanOperationDBDrop represents dropping a collection with its indexes.
	SpanOperationDBDrop SpanOperation = "db.drop"
)

const instrumentationName = "github.com/nimburion/docspec/database"

// StartDatabaseSpan creates a client span for a database operation. The span is named after
// the operation and, when set, the collection.
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	spanOpts := &databaseSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("db.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("DB %s", operation)
	if spanOpts.collection != "" {
		spanName = fmt.Sprintf("DB %s %s", operation, spanOpts.collection)
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// AnnotateDatabaseSpan adds attributes to the database span active in ctx. It is used for
// details only known once the span has started, such as the translated filter.
func AnnotateDatabaseSpan(ctx context.Context, opts ...DatabaseSpanOption) {
	spanOpts := &databaseSpanOptions{}
	for _, opt := range opts {
		opt(spanOpts)
	}
	trace.SpanFromContext(ctx).SetAttributes(spanOpts.attributes...)
}

// DatabaseSpanOption configures a database span.
type DatabaseSpanOption func(*databaseSpanOptions)

type databaseSpanOptions struct {
	collection string
	attributes []attribute.KeyValue
}

// WithDBCollection sets the collection the operation targets.
func WithDBCollection(collection string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.collection = collection
		opts.attributes = append(opts.attributes, attribute.String("db.collection.name", collection))
	}
}

// WithDBSystem sets the database system (e.g. "mongodb").
func WithDBSystem(system string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.system", system))
	}
}

// WithDBStatement sets the rendered filter or statement.
func WithDBStatement(statement string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.statement", statement))
	}
}

// WithDBName sets the database name.
func WithDBName(name string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.name", name))
	}
}

// WithQueryID correlates the span with the translated query.
func WithQueryID(id string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.query.id", id))
	}
}

// RecordError records err on span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// End records the outcome of an operation and ends span.
func End(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	span.End()
}
