package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrStep      = "step"
	attrSource    = "source"
	attrBackend   = "backend"
	attrModel     = "model"
	attrTool      = "tool"
	attrCategory  = "category"
)

// Metrics provides methods for recording observability metrics.
//
// All Record methods are safe to call on a nil *Metrics or on a Metrics
// created while instrumentation is disabled; they do nothing in that case.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Mailbox metrics
	mailboxFetchTotal    metric.Int64Counter
	mailboxFetchDuration metric.Float64Histogram
	mailboxMessages      metric.Int64Histogram

	// Triage step metrics
	triageStepTotal      metric.Int64Counter
	triageStepDuration   metric.Float64Histogram
	triageCategoriesSeen metric.Int64Counter

	// Language model metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram

	// Feedback memory metrics
	memoryOperationsTotal   metric.Int64Counter
	memoryOperationDuration metric.Float64Histogram
	memoryMatchesReturned   metric.Int64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active triage sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Mailbox Metrics
	m.mailboxFetchTotal, err = meter.Int64Counter(
		"mailbox_fetch_total",
		metric.WithDescription("Total number of message source fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_fetch_total counter: %w", err)
	}

	m.mailboxFetchDuration, err = meter.Float64Histogram(
		"mailbox_fetch_duration_seconds",
		metric.WithDescription("Message source fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_fetch_duration_seconds histogram: %w", err)
	}

	m.mailboxMessages, err = meter.Int64Histogram(
		"mailbox_messages_fetched",
		metric.WithDescription("Number of messages returned per fetch"),
		metric.WithUnit("{message}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailbox_messages_fetched histogram: %w", err)
	}

	// Triage Metrics
	m.triageStepTotal, err = meter.Int64Counter(
		"triage_step_total",
		metric.WithDescription("Total number of triage steps by step and status"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_step_total counter: %w", err)
	}

	m.triageStepDuration, err = meter.Float64Histogram(
		"triage_step_duration_seconds",
		metric.WithDescription("Triage step duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_step_duration_seconds histogram: %w", err)
	}

	m.triageCategoriesSeen, err = meter.Int64Counter(
		"triage_category_total",
		metric.WithDescription("Total number of messages classified per category"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage_category_total counter: %w", err)
	}

	// LLM Metrics
	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of language model requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Language model request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_request_duration_seconds histogram: %w", err)
	}

	// Memory Metrics
	m.memoryOperationsTotal, err = meter.Int64Counter(
		"memory_operations_total",
		metric.WithDescription("Total number of feedback memory operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory_operations_total counter: %w", err)
	}

	m.memoryOperationDuration, err = meter.Float64Histogram(
		"memory_operation_duration_seconds",
		metric.WithDescription("Feedback memory operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory_operation_duration_seconds histogram: %w", err)
	}

	m.memoryMatchesReturned, err = meter.Int64Histogram(
		"memory_matches_returned",
		metric.WithDescription("Number of past feedback entries returned per similarity query"),
		metric.WithUnit("{match}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory_matches_returned histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMailboxFetch records a fetch from a message source.
//
// Parameters:
//   - source: Source name (imap, gmail, sample)
//   - status: Result status ("success" or "error")
//   - count: Number of messages returned
//   - duration: Time taken for the fetch
func (m *Metrics) RecordMailboxFetch(ctx context.Context, source, status string, count int, duration time.Duration) {
	if m == nil || m.mailboxFetchTotal == nil || m.mailboxFetchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	}

	m.mailboxFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.mailboxFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if status == StatusSuccess && m.mailboxMessages != nil {
		m.mailboxMessages.Record(ctx, int64(count), metric.WithAttributes(attribute.String(attrSource, source)))
	}
}

// RecordTriageStep records a classify, draft or refine step.
// Status is "success", "error" or "fallback" (a degraded value was returned).
func (m *Metrics) RecordTriageStep(ctx context.Context, step, status string, duration time.Duration) {
	if m == nil || m.triageStepTotal == nil || m.triageStepDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStep, step),
		attribute.String(attrStatus, status),
	}

	m.triageStepTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.triageStepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCategory counts a classification outcome.
func (m *Metrics) RecordCategory(ctx context.Context, category string) {
	if m == nil || m.triageCategoriesSeen == nil {
		return // Instrumentation not initialized
	}

	m.triageCategoriesSeen.Add(ctx, 1, metric.WithAttributes(attribute.String(attrCategory, category)))
}

// RecordLLMRequest records a language model call.
//
// Parameters:
//   - operation: "generate" or "embed"
//   - model: Model name; only included when detailed labels are enabled
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the call
func (m *Metrics) RecordLLMRequest(ctx context.Context, operation, model, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil || m.llmRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}

	m.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMemoryOperation records a feedback memory operation against a backend.
func (m *Metrics) RecordMemoryOperation(ctx context.Context, backend, operation, status string, duration time.Duration) {
	if m == nil || m.memoryOperationsTotal == nil || m.memoryOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrBackend, backend),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.memoryOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.memoryOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMemoryMatches records how many past entries a similarity query returned.
func (m *Metrics) RecordMemoryMatches(ctx context.Context, backend string, count int) {
	if m == nil || m.memoryMatchesReturned == nil {
		return // Instrumentation not initialized
	}

	m.memoryMatchesReturned.Record(ctx, int64(count), metric.WithAttributes(attribute.String(attrBackend, backend)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "triage_draft", "memory_search")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}
