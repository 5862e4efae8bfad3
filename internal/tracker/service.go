// Package tracker sequences issue mutations: each operation runs in one
// store transaction that checks versions, writes the change and appends the
// matching history events, committing all of it or none.
package tracker

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joescharf/tracker/internal/store"
)

const tracerName = "github.com/joescharf/tracker/internal/tracker"

// Service is the tracker's use-case layer.
type Service struct {
	store  store.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a Service. A nil logger falls back to slog.Default().
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Store returns the underlying store for read-only queries.
func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "tracker."+op, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
