package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testSender    = "Jane Doe <jane@example.com>"
	testDomain    = "example.com"
	testSession   = "0b6f2c8e-session"
	testMessageID = "42"
	testTraceID   = "abc123def456"
	testToolDraft = "triage_draft"
	testToolRef   = "triage_refine"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("failed to decode log record %q: %v", buf.String(), err)
	}
	return rec
}

func attrKeys(attrs []slog.Attr) map[string]slog.Value {
	m := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testToolDraft)

	if ti.Tool != testToolDraft {
		t.Errorf("Tool = %q, want %q", ti.Tool, testToolDraft)
	}
	if ti.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ti.CompleteSuccess()

	if !ti.Success {
		t.Error("Success should be true")
	}
	if ti.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ti.Error != "" {
		t.Errorf("Error should be empty, got %q", ti.Error)
	}
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testToolRef)
	ti.CompleteWithError(errors.New("ollama unreachable"))

	if ti.Success {
		t.Error("Success should be false")
	}
	if ti.Error != "ollama unreachable" {
		t.Errorf("Error = %q, want %q", ti.Error, "ollama unreachable")
	}
	if ti.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusError)
	}
}

func TestToolInvocation_CompleteWithFallback(t *testing.T) {
	ti := NewToolInvocation(testToolDraft)
	ti.CompleteWithFallback(errors.New("generation failed"))

	if !ti.Success {
		t.Error("a fallback still counts as a completed invocation")
	}
	if ti.Status() != StatusFallback {
		t.Errorf("Status() = %q, want %q", ti.Status(), StatusFallback)
	}
	if ti.Error != "generation failed" {
		t.Errorf("Error = %q, want the underlying error", ti.Error)
	}
}

func TestToolInvocation_SenderDomain(t *testing.T) {
	ti := NewToolInvocation("test").WithMessage(testMessageID, testSender)

	if domain := ti.SenderDomain(); domain != testDomain {
		t.Errorf("SenderDomain() = %q, want %q", domain, testDomain)
	}
}

func TestToolInvocation_LogAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolRef).
		WithSession(testSession).
		WithStep(StepRefine).
		WithMessage(testMessageID, testSender).
		CompleteSuccess()
	ti.TraceID = testTraceID

	attrs := attrKeys(ti.LogAttrs())

	for _, key := range []string{"tool", "duration", "status", "session", "step", "message_id", "sender_domain", "trace_id"} {
		if _, ok := attrs[key]; !ok {
			t.Errorf("Missing attribute: %s", key)
		}
	}
	if _, ok := attrs["sender"]; ok {
		t.Error("LogAttrs must not include the full sender address")
	}
	if got := attrs["sender_domain"].String(); got != testDomain {
		t.Errorf("sender_domain = %q, want %q", got, testDomain)
	}
}

func TestToolInvocation_LogAttrs_MinimalFields(t *testing.T) {
	ti := NewToolInvocation("triage_list_messages").CompleteSuccess()

	attrs := attrKeys(ti.LogAttrs())
	if len(attrs) != 3 {
		t.Errorf("expected only tool, duration and status, got %v", attrs)
	}
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testToolDraft).
		WithMessage(testMessageID, testSender).
		CompleteWithError(errors.New("boom"))
	ti.TraceID = testTraceID
	ti.SpanID = "span789"

	attrs := attrKeys(ti.LogAuditAttrs())

	if got := attrs["sender"].String(); got != testSender {
		t.Errorf("sender = %q, want %q", got, testSender)
	}
	if got := attrs["error"].String(); got != "boom" {
		t.Errorf("error = %q, want %q", got, "boom")
	}
	if _, ok := attrs["span_id"]; !ok {
		t.Error("Missing attribute: span_id")
	}
}

func TestAuditLogger_New(t *testing.T) {
	al := NewAuditLogger(nil)
	if al.logger == nil {
		t.Error("logger should not be nil when created with nil")
	}

	logger := slog.Default()
	al = NewAuditLogger(logger)
	if al.logger != logger {
		t.Error("logger should be the provided logger")
	}
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	tests := []struct {
		name      string
		complete  func(*ToolInvocation)
		wantMsg   string
		wantLevel string
	}{
		{"success", func(ti *ToolInvocation) { ti.CompleteSuccess() }, "tool_executed", "INFO"},
		{"fallback", func(ti *ToolInvocation) { ti.CompleteWithFallback(errors.New("x")) }, "tool_degraded", "WARN"},
		{"failure", func(ti *ToolInvocation) { ti.CompleteWithError(errors.New("x")) }, "tool_failed", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger()
			al := NewAuditLogger(logger)

			ti := NewToolInvocation(testToolDraft).WithMessage(testMessageID, testSender)
			tt.complete(ti)
			al.LogToolInvocation(ti)

			rec := decodeRecord(t, buf)
			if rec["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", rec["msg"], tt.wantMsg)
			}
			if rec["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %q", rec["level"], tt.wantLevel)
			}
			if strings.Contains(buf.String(), "jane@example.com") {
				t.Error("sender address leaked into a non-PII log")
			}
		})
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	logger, buf := bufferLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})

	al.LogToolInvocation(NewToolInvocation(testToolDraft).WithMessage(testMessageID, testSender).CompleteSuccess())

	rec := decodeRecord(t, buf)
	if rec["sender"] != testSender {
		t.Errorf("sender = %v, want %q", rec["sender"], testSender)
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	logger, buf := bufferLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})

	ti := NewToolInvocation(testToolDraft).CompleteSuccess()
	al.LogToolInvocation(ti)
	al.LogToolAudit(ti)

	if buf.Len() != 0 {
		t.Errorf("expected no output when disabled, got %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(ti) // must not panic
}

func TestAuditLogger_LogToolAudit(t *testing.T) {
	logger, buf := bufferLogger()
	al := NewAuditLogger(logger)

	ti := NewToolInvocation(testToolRef).WithMessage(testMessageID, testSender).CompleteSuccess()
	al.LogToolAudit(ti)

	rec := decodeRecord(t, buf)
	if rec["msg"] != "tool_audit" {
		t.Errorf("msg = %v, want tool_audit", rec["msg"])
	}
	if rec["sender"] != testSender {
		t.Errorf("audit record should carry the full sender, got %v", rec["sender"])
	}
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation("test").WithSpanContext(context.Background())

	if ti.TraceID != "" {
		t.Errorf("TraceID should be empty without span, got %q", ti.TraceID)
	}
	if ti.SpanID != "" {
		t.Errorf("SpanID should be empty without span, got %q", ti.SpanID)
	}
}
