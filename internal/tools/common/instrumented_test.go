package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/llm/llmtest"
	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/server"
	"github.com/teemow/mailresponder/internal/session"
	"github.com/teemow/mailresponder/internal/triage"
)

type staticSource []mail.Message

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context) ([]mail.Message, error) { return s, nil }

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	client := &llmtest.Client{Default: "WORK"}
	mem, err := memory.New(memory.Config{Embedder: &llmtest.Embedder{}, Store: memory.NewInMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	classifier, err := triage.NewClassifier(triage.StepConfig{Client: client})
	if err != nil {
		t.Fatal(err)
	}
	drafter, err := triage.NewDrafter(triage.StepConfig{Client: client}, mem, 0)
	if err != nil {
		t.Fatal(err)
	}
	refiner, err := triage.NewRefiner(triage.StepConfig{Client: client}, mem)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := session.New(session.Options{
		Loader: &mail.Loader{Sample: staticSource{
			{ID: "42", Subject: "Meeting", From: "Alice <alice@example.com>", Body: "Please confirm the meeting"},
		}},
		Memory:     mem,
		Classifier: classifier,
		Drafter:    drafter,
		Refiner:    refiner,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.EnsureLoaded(context.Background()); err != nil {
		t.Fatal(err)
	}

	sc, err := server.NewServerContext(context.Background(), sess)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func newAuditBuffer(sc *server.ServerContext) *bytes.Buffer {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLogger(logger))
	return &buf
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	// Create a handler that returns success
	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)
	audit := newAuditBuffer(sc)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if !strings.Contains(audit.String(), "tool_failed") {
		t.Errorf("expected tool_failed audit record, got %q", audit.String())
	}
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newServerContext(t)

	// Create a handler that returns an error result (not Go error)
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if !result.IsError {
		t.Error("expected result.IsError to be true")
	}
}

func TestInstrumentedStepHandler_Fallback(t *testing.T) {
	sc := newServerContext(t)
	audit := newAuditBuffer(sc)

	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := instrumentation.NewMetrics(meter, false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc.SetMetrics(metrics)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(1 * time.Millisecond)
		ReportFallback(ctx, errors.New("model unavailable"))
		return mcp.NewToolResultText("Sorry, I couldn't generate a reply."), nil
	}

	wrapped := InstrumentedStepHandler("triage_draft", instrumentation.StepDraft, sc, handler)
	result, err := wrapped(context.Background(), callRequest(map[string]interface{}{ArgEmailID: "42"}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result == nil || result.IsError {
		t.Fatalf("expected successful result, got %+v", result)
	}

	out := audit.String()
	if !strings.Contains(out, "tool_degraded") {
		t.Errorf("expected tool_degraded audit record, got %q", out)
	}
	if !strings.Contains(out, "message_id=42") {
		t.Errorf("expected message id in audit record, got %q", out)
	}
	if !strings.Contains(out, "example.com") {
		t.Errorf("expected sender domain in audit record, got %q", out)
	}
	if strings.Contains(out, "alice@example.com") {
		t.Errorf("full sender address should not be logged, got %q", out)
	}
}

func TestReportFallback_OutsideHandler(t *testing.T) {
	// Must not panic without an instrumented handler in the chain.
	ReportFallback(context.Background(), errors.New("ignored"))
}
