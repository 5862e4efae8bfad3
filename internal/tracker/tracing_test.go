package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestService_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})

	svc := newTestService(t)
	ctx := context.Background()
	alice := mustUser(t, svc, "alice")

	issue := mustIssue(t, svc, CreateIssueInput{Title: "Traced", ReporterID: alice.ID})
	_, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 7})
	require.Error(t, err)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range sr.Ended() {
		spans[s.Name()] = s
	}
	require.Contains(t, spans, "tracker.CreateIssue")
	require.Contains(t, spans, "tracker.UpdateIssue")
	assert.Equal(t, codes.Unset, spans["tracker.CreateIssue"].Status().Code)
	assert.Equal(t, codes.Error, spans["tracker.UpdateIssue"].Status().Code)
}
