package common

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

type fallbackKey struct{}

type fallbackMarker struct {
	mu  sync.Mutex
	set bool
	err error
}

// ReportFallback marks the running tool invocation as degraded: the handler
// returned a usable result but a step fell back. Outside an instrumented
// handler it does nothing.
func ReportFallback(ctx context.Context, err error) {
	m, ok := ctx.Value(fallbackKey{}).(*fallbackMarker)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = true
	if m.err == nil {
		m.err = err
	}
}

func (m *fallbackMarker) get() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set, m.err
}

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging. The invocation is tagged with the session and, when the
// request names one, the message being processed.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedStepHandler(toolName, "", sc, handler)
}

// InstrumentedStepHandler is like InstrumentedToolHandler but also records
// the triage step the tool runs.
func InstrumentedStepHandler(toolName, step string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		marker := &fallbackMarker{}
		ctx = context.WithValue(ctx, fallbackKey{}, marker)

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSession(sc.Session().ID()).
			WithStep(step).
			WithSpanContext(ctx)

		if id := MessageIDFromArgs(request.GetArguments()); id != "" {
			sender := ""
			if msg, err := sc.Session().Lookup(id); err == nil {
				sender = msg.From
			}
			invocation.WithMessage(id, sender)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		fellBack, fallbackErr := marker.get()

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		case fellBack:
			status = instrumentation.StatusFallback
			invocation.CompleteWithFallback(fallbackErr)
			instrumentation.SetSpanSuccess(span)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, status, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}
