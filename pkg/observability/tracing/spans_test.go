package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	previous := otel.GetTracerProvider()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestStartDatabaseSpan(t *testing.T) {
	recorder := setupTestTracer(t)

	tests := []struct {
		name          string
		operation     SpanOperation
		opts          []DatabaseSpanOption
		expectedName  string
		expectedAttrs map[string]any
	}{
		{
			name:          "query without options",
			operation:     SpanOperationDBQuery,
			expectedName:  "DB db.query",
			expectedAttrs: map[string]any{"db.operation": "db.query"},
		},
		{
			name:      "count with all options",
			operation: SpanOperationDBCount,
			opts: []DatabaseSpanOption{
				WithDBCollection("products"),
				WithDBSystem("mongodb"),
				WithDBStatement(`{"price": {"$gt": 2}}`),
				WithDBName("shop"),
				WithQueryID("q-1"),
			},
			expectedName: "DB db.count products",
			expectedAttrs: map[string]any{
				"db.operation":       "db.count",
				"db.collection.name": "products",
				"db.system":          "mongodb",
				"db.statement":       `{"price": {"$gt": 2}}`,
				"db.name":            "shop",
				"db.query.id":        "q-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder.Reset()

			_, span := StartDatabaseSpan(context.Background(), tt.operation, tt.opts...)
			span.End()

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			recorded := spans[0]
			if recorded.Name() != tt.expectedName {
				t.Errorf("expected span name %q, got %q", tt.expectedName, recorded.Name())
			}
			if recorded.SpanKind() != trace.SpanKindClient {
				t.Errorf("expected client span, got %v", recorded.SpanKind())
			}
			attrs := make(map[string]any)
			for _, attr := range recorded.Attributes() {
				attrs[string(attr.Key)] = attr.Value.AsInterface()
			}
			for key, want := range tt.expectedAttrs {
				if attrs[key] != want {
					t.Errorf("attribute %s = %v, want %v", key, attrs[key], want)
				}
			}
		})
	}
}

func TestEnd(t *testing.T) {
	recorder := setupTestTracer(t)

	_, span := StartDatabaseSpan(context.Background(), SpanOperationDBDelete)
	End(span, errors.New("connection reset"))
	_, span = StartDatabaseSpan(context.Background(), SpanOperationDBInsert)
	End(span, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "connection reset" {
		t.Errorf("unexpected failed span status: %+v", spans[0].Status())
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
	if spans[1].Status().Code != codes.Ok {
		t.Errorf("unexpected successful span status: %+v", spans[1].Status())
	}
}

func TestAnnotateDatabaseSpan(t *testing.T) {
	recorder := setupTestTracer(t)

	ctx, span := StartDatabaseSpan(context.Background(), SpanOperationDBQuery, WithDBCollection("products"))
	AnnotateDatabaseSpan(ctx, WithDBStatement(`{"_id": {"$exists": true}}`))
	span.End()
	AnnotateDatabaseSpan(context.Background(), WithDBStatement("ignored"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.statement" && attr.Value.AsString() == `{"_id": {"$exists": true}}` {
			return
		}
	}
	t.Fatal("statement attribute not recorded")
}
