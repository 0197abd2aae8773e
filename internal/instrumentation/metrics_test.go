package instrumentation

import (
	"context"
	"testing"
	"time"
)

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx, provider := newTestProvider(t)

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 500, 50*time.Millisecond)
}

func TestMetrics_RecordMailboxFetch(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordMailboxFetch(ctx, "imap", StatusSuccess, 12, 300*time.Millisecond)
	metrics.RecordMailboxFetch(ctx, "gmail", StatusError, 0, time.Second)
	metrics.RecordMailboxFetch(ctx, "sample", StatusSuccess, 0, time.Millisecond)
}

func TestMetrics_RecordTriageStep(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordTriageStep(ctx, StepClassify, StatusSuccess, 2*time.Second)
	metrics.RecordTriageStep(ctx, StepDraft, StatusFallback, 4*time.Second)
	metrics.RecordTriageStep(ctx, StepRefine, StatusError, time.Second)
	metrics.RecordCategory(ctx, "URGENT")
}

func TestMetrics_RecordLLMRequest(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordLLMRequest(ctx, LLMOperationGenerate, "llama3", StatusSuccess, 3*time.Second)
	metrics.RecordLLMRequest(ctx, LLMOperationEmbed, "nomic-embed-text", StatusError, 10*time.Millisecond)
}

func TestMetrics_RecordMemoryOperation(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordMemoryOperation(ctx, "sqlite", OperationAdd, StatusSuccess, 5*time.Millisecond)
	metrics.RecordMemoryOperation(ctx, "redis", OperationSearch, StatusError, 20*time.Millisecond)
	metrics.RecordMemoryMatches(ctx, "sqlite", 2)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordToolInvocation(ctx, "triage_draft", StatusSuccess, time.Second)
	metrics.RecordToolInvocation(ctx, "memory_search", StatusError, 10*time.Millisecond)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx, provider := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_DetailedLabels(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  true,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()
	if !metrics.detailedLabels {
		t.Error("expected detailed labels to be enabled")
	}
	metrics.RecordLLMRequest(ctx, LLMOperationGenerate, "llama3", StatusSuccess, time.Second)
}

func TestMetrics_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ctx := context.Background()
	metrics := provider.Metrics()

	// Uninitialized instruments are a no-op
	metrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	metrics.RecordMailboxFetch(ctx, "imap", StatusSuccess, 1, time.Millisecond)
	metrics.RecordTriageStep(ctx, StepDraft, StatusSuccess, time.Millisecond)
	metrics.RecordLLMRequest(ctx, LLMOperationGenerate, "llama3", StatusSuccess, time.Millisecond)
	metrics.RecordMemoryOperation(ctx, "memory", OperationAdd, StatusSuccess, time.Millisecond)
	metrics.RecordToolInvocation(ctx, "triage_draft", StatusSuccess, time.Millisecond)
	metrics.IncrementActiveSessions(ctx)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	// Callers may hold a nil recorder when instrumentation is not wired
	metrics.RecordMailboxFetch(ctx, "sample", StatusSuccess, 3, time.Millisecond)
	metrics.RecordTriageStep(ctx, StepClassify, StatusError, time.Millisecond)
	metrics.RecordCategory(ctx, "SPAM")
	metrics.RecordLLMRequest(ctx, LLMOperationEmbed, "", StatusSuccess, time.Millisecond)
	metrics.RecordMemoryOperation(ctx, "sqlite", OperationSearch, StatusSuccess, time.Millisecond)
	metrics.RecordMemoryMatches(ctx, "sqlite", 0)
	metrics.RecordToolInvocation(ctx, "memory_search", StatusSuccess, time.Millisecond)
	metrics.DecrementActiveSessions(ctx)
}
