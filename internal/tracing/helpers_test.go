package tracing

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// recorderProvider installs an in-memory span recorder as the global
// tracer provider for the duration of a test.
func recorderProvider(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

// TestStartSpan tests basic span creation and error recording.
func TestStartSpan(t *testing.T) {
	recorder := recorderProvider(t)

	_, endSpan := StartSpan(context.Background(), "rank_feed")
	endSpan(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "rank_feed" {
		t.Errorf("expected span name rank_feed, got %s", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("expected non-error status for nil error")
	}
}

// TestStartSpan_RecordsError tests error status propagation.
func TestStartSpan_RecordsError(t *testing.T) {
	recorder := recorderProvider(t)

	_, endSpan := StartSpan(context.Background(), "rank_feed")
	endSpan(errors.New("store unavailable"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Error("expected error status")
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected a recorded error event")
	}
}

// TestStartDBSpan tests database span naming and attributes.
func TestStartDBSpan(t *testing.T) {
	recorder := recorderProvider(t)

	_, endSpan := StartDBSpan(context.Background(), "posts", DBOperationQuery)
	endSpan(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "query posts" {
		t.Errorf("expected span name 'query posts', got %s", spans[0].Name())
	}

	found := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "db.sql.table" && attr.Value.AsString() == "posts" {
			found = true
		}
	}
	if !found {
		t.Error("expected db.sql.table attribute")
	}
}

// TestNewProvider_Disabled tests the disabled no-op path.
func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if p.IsEnabled() {
		t.Error("expected provider to report disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of disabled provider failed: %v", err)
	}
}

// TestNewProvider_Validation tests config rejection.
func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{Enabled: true, ServiceName: ""}); err == nil {
		t.Error("expected error for empty service name")
	}
	if _, err := NewProvider(Config{Enabled: true, ServiceName: "noma", SamplingRate: 2.0}); err == nil {
		t.Error("expected error for out-of-range sampling rate")
	}
	if _, err := NewProvider(Config{Enabled: true, ServiceName: "noma", ExporterType: "jaeger-legacy"}); err == nil {
		t.Error("expected error for unsupported exporter type")
	}
}
