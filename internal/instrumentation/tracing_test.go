package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(t *testing.T) (context.Context, *Provider) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return ctx, provider
}

// recordSpans installs an in-memory tracer provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, attr := range attrs {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("triage_refine").
		WithStep(StepRefine).
		WithSession("sess-1").
		WithMessageID("42").
		WithModel("llama3").
		WithBackend("sqlite").
		WithOperation(OperationAdd).
		Build()

	if len(attrs) != 7 {
		t.Errorf("expected 7 attributes, got %d", len(attrs))
	}

	m := attrMap(attrs)
	if m[SpanAttrTool] != "triage_refine" {
		t.Errorf("expected tool 'triage_refine', got %v", m[SpanAttrTool])
	}
	if m[SpanAttrStep] != StepRefine {
		t.Errorf("expected step %q, got %v", StepRefine, m[SpanAttrStep])
	}
	if m[SpanAttrMessageID] != "42" {
		t.Errorf("expected message id '42', got %v", m[SpanAttrMessageID])
	}
	if m[SpanAttrModel] != "llama3" {
		t.Errorf("expected model 'llama3', got %v", m[SpanAttrModel])
	}
	if m[SpanAttrBackend] != "sqlite" {
		t.Errorf("expected backend 'sqlite', got %v", m[SpanAttrBackend])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("triage_list_messages").
		WithSession("").
		WithMessageID("").
		WithModel("").
		Build()

	// Only tool should be present
	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestStartSpan(t *testing.T) {
	ctx, _ := newTestProvider(t)

	spanCtx, span := StartSpan(ctx, "test-span")
	defer span.End()

	if spanCtx == nil {
		t.Error("expected context to be non-nil")
	}
	if span == nil {
		t.Error("expected span to be non-nil")
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "triage_draft")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "tool.triage_draft" {
		t.Errorf("expected span name 'tool.triage_draft', got %q", spans[0].Name())
	}
	if spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("expected server span, got %v", spans[0].SpanKind())
	}
}

func TestStartStepSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartStepSpan(context.Background(), StepClassify, "7")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "triage.classify" {
		t.Errorf("expected span name 'triage.classify', got %q", spans[0].Name())
	}
	m := attrMap(spans[0].Attributes())
	if m[SpanAttrMessageID] != "7" {
		t.Errorf("expected message id '7', got %v", m[SpanAttrMessageID])
	}
}

func TestStartLLMSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartLLMSpan(context.Background(), LLMOperationEmbed, "nomic-embed-text")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "llm.embed" {
		t.Errorf("expected span name 'llm.embed', got %q", spans[0].Name())
	}
	if spans[0].SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span, got %v", spans[0].SpanKind())
	}
	m := attrMap(spans[0].Attributes())
	if m[SpanAttrModel] != "nomic-embed-text" {
		t.Errorf("expected model attribute, got %v", m[SpanAttrModel])
	}
}

func TestStartMemorySpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartMemorySpan(context.Background(), "redis", OperationSearch)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "memory.search" {
		t.Errorf("expected span name 'memory.search', got %q", spans[0].Name())
	}
	m := attrMap(spans[0].Attributes())
	if m[SpanAttrBackend] != "redis" {
		t.Errorf("expected backend 'redis', got %v", m[SpanAttrBackend])
	}
}

func TestStartMailboxSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartMailboxSpan(context.Background(), "imap")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if m := attrMap(spans[0].Attributes()); m[SpanAttrSource] != "imap" {
		t.Errorf("expected source 'imap', got %v", m[SpanAttrSource])
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, errors.New("test error"))
	SetSpanError(span, nil) // nil error should be safe
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanSuccess(span)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Ok {
		t.Errorf("expected ok status, got %v", got)
	}
}

func TestAddSpanEvent(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(span, "fallback_used", attribute.String(SpanAttrStep, StepDraft))
	span.End()

	events := recorder.Ended()[0].Events()
	if len(events) != 1 || events[0].Name != "fallback_used" {
		t.Errorf("expected a single fallback_used event, got %v", events)
	}
}

func TestGetTraceID(t *testing.T) {
	recordSpans(t)

	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", id)
	}

	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	if GetTraceID(ctx) == "" {
		t.Error("expected trace ID inside a recorded span")
	}
	if GetSpanID(ctx) == "" {
		t.Error("expected span ID inside a recorded span")
	}
	if SpanContextString(ctx) == "" {
		t.Error("expected span context string inside a recorded span")
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	if spanID := GetSpanID(context.Background()); spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}

func TestSpanContextString_NoSpan(t *testing.T) {
	if ctxStr := SpanContextString(context.Background()); ctxStr != "" {
		t.Errorf("expected empty context string for context without span, got %q", ctxStr)
	}
}
