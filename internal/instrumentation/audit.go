package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ToolInvocation captures all information about a tool invocation for audit logging.
// This provides an audit trail for every MCP tool call and CLI triage step.
//
// # Privacy Considerations
//
// The Sender field contains the From header of the processed message. When
// logging, use SenderDomain() for general logs and only log the full address
// in audit-specific log streams.
type ToolInvocation struct {
	// Tool or command name
	Tool string

	// Triage context
	Session   string // Session identifier
	Step      string // classify, draft, refine
	MessageID string
	Sender    string // From header of the message (PII)

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Fallback  bool // a degraded value was returned
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// SenderDomain returns the domain portion of the sender for lower-cardinality logging.
func (ti *ToolInvocation) SenderDomain() string {
	return ExtractSenderDomain(ti.Sender)
}

// Status returns "success", "fallback" or "error".
func (ti *ToolInvocation) Status() string {
	switch {
	case !ti.Success:
		return StatusError
	case ti.Fallback:
		return StatusFallback
	default:
		return StatusSuccess
	}
}

// LogAttrs returns slog attributes for structured logging.
// The sender is reduced to its domain.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if ti.Sender != "" {
		attrs = append(attrs, slog.String("sender_domain", ti.SenderDomain()))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
//
// # Security Warning
//
// This method includes PII (the full sender address). Ensure audit logs are
// stored with appropriate access controls.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if ti.Sender != "" {
		attrs = append(attrs, slog.String("sender", ti.Sender))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

func (ti *ToolInvocation) baseAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.String("status", ti.Status()),
	}
	if ti.Session != "" {
		attrs = append(attrs, slog.String("session", ti.Session))
	}
	if ti.Step != "" {
		attrs = append(attrs, slog.String("step", ti.Step))
	}
	if ti.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", ti.MessageID))
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithSession sets the session identifier.
func (ti *ToolInvocation) WithSession(id string) *ToolInvocation {
	ti.Session = id
	return ti
}

// WithStep sets the triage step.
func (ti *ToolInvocation) WithStep(step string) *ToolInvocation {
	ti.Step = step
	return ti
}

// WithMessage sets the message being processed.
func (ti *ToolInvocation) WithMessage(id, sender string) *ToolInvocation {
	ti.MessageID = id
	ti.Sender = sender
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
// Returns the same ToolInvocation for method chaining.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithFallback marks the invocation as having returned a degraded
// value. The underlying error is kept for the log record.
func (ti *ToolInvocation) CompleteWithFallback(err error) *ToolInvocation {
	ti.Fallback = true
	return ti.Complete(true, err)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, sender addresses are reduced to their domain.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full sender addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogToolInvocation logs a tool invocation. Fallbacks and failures are
// logged at warn level.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	switch ti.Status() {
	case StatusSuccess:
		al.logger.Info("tool_executed", args...)
	case StatusFallback:
		al.logger.Warn("tool_degraded", args...)
	default:
		al.logger.Warn("tool_failed", args...)
	}
}

// LogToolAudit logs a tool invocation with full audit details, regardless of
// the IncludePII setting.
func (al *AuditLogger) LogToolAudit(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("tool_audit", args...)
}
