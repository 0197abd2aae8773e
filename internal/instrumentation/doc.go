// Package instrumentation provides OpenTelemetry instrumentation for the
// mailresponder triage assistant.
//
// This package enables observability through:
//   - OpenTelemetry metrics for triage steps, language model calls, feedback
//     memory operations, mailbox fetches and MCP tool invocations
//   - Distributed tracing for triage steps and their downstream calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active triage sessions
//
// Mailbox Metrics:
//   - mailbox_fetch_total: Counter of source fetches by source and status
//   - mailbox_fetch_duration_seconds: Histogram of fetch durations
//   - mailbox_messages_fetched: Histogram of messages returned per fetch
//
// Triage Metrics:
//   - triage_step_total: Counter of classify/draft/refine steps by status
//     (success, error, fallback)
//   - triage_step_duration_seconds: Histogram of step durations
//   - triage_category_total: Counter of classification outcomes
//
// Language Model Metrics:
//   - llm_requests_total: Counter of generate/embed calls by status
//   - llm_request_duration_seconds: Histogram of call durations
//
// Feedback Memory Metrics:
//   - memory_operations_total: Counter of add/search operations by backend
//   - memory_operation_duration_seconds: Histogram of operation durations
//   - memory_matches_returned: Histogram of past entries returned per query
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Triage steps (triage.<step>)
//   - Language model calls (llm.generate, llm.embed)
//   - Feedback memory operations (memory.<operation>)
//   - Mailbox fetches (mailbox.fetch)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mailresponder)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "mailresponder",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordTriageStep(ctx, instrumentation.StepDraft, instrumentation.StatusSuccess, time.Since(start))
//
// Every Record method is a no-op on a nil *Metrics, so components can hold an
// optional recorder without guarding each call.
package instrumentation
