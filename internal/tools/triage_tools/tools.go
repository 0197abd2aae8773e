package triage_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailresponder/internal/mail"
	"github.com/teemow/mailresponder/internal/server"
	"github.com/teemow/mailresponder/internal/session"
	"github.com/teemow/mailresponder/internal/tools/common"
)

// RegisterTriageTools registers all triage tools with the MCP server
func RegisterTriageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return errors.New("server and server context are required")
	}

	// Register message tools
	if err := RegisterMessageTools(s, sc); err != nil {
		return fmt.Errorf("failed to register message tools: %w", err)
	}

	// Register step tools
	if err := RegisterStepTools(s, sc); err != nil {
		return fmt.Errorf("failed to register step tools: %w", err)
	}

	// Register memory tools
	if err := RegisterMemoryTools(s, sc); err != nil {
		return fmt.Errorf("failed to register memory tools: %w", err)
	}

	return nil
}

// lookupMessage loads the session's messages if needed and resolves id.
func lookupMessage(ctx context.Context, sc *server.ServerContext, id string) (mail.Message, *mcp.CallToolResult) {
	if id == "" {
		return mail.Message{}, mcp.NewToolResultError(common.ArgEmailID + " is required")
	}
	if err := sc.Session().EnsureLoaded(ctx); err != nil {
		return mail.Message{}, mcp.NewToolResultError(fmt.Sprintf("Failed to load messages: %v", err))
	}
	msg, err := sc.Session().Lookup(id)
	if err != nil {
		var nf *session.NotFoundError
		if errors.As(err, &nf) {
			return mail.Message{}, mcp.NewToolResultError(nf.Error())
		}
		return mail.Message{}, mcp.NewToolResultError(err.Error())
	}
	return msg, nil
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func wrap(name, step string, sc *server.ServerContext, handler func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)) mcpserver.ToolHandlerFunc {
	inner := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(ctx, request, sc)
	}
	if step == "" {
		return mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(name, sc, inner))
	}
	return mcpserver.ToolHandlerFunc(common.InstrumentedStepHandler(name, step, sc, inner))
}
