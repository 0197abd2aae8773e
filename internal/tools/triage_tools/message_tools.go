package triage_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailresponder/internal/server"
)

// previewLength is the body preview shown by triage_list_messages.
const previewLength = 120

// MessageSummary is one entry of triage_list_messages.
type MessageSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Preview string `json:"preview"`
}

// MessageList is the triage_list_messages result.
type MessageList struct {
	Origin   string           `json:"origin"`
	Count    int              `json:"count"`
	Messages []MessageSummary `json:"messages"`
}

// RegisterMessageTools registers the message listing tools
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("triage_list_messages",
		mcp.WithDescription("List the messages of the triage session (live mailbox, cache of the last live fetch, or sample set)"),
	)
	s.AddTool(listTool, wrap("triage_list_messages", "", sc, handleListMessages))

	refreshTool := mcp.NewTool("triage_refresh_messages",
		mcp.WithDescription("Reload the session's messages. Falls back to the cache and then the sample set when the mailbox is unavailable"),
	)
	s.AddTool(refreshTool, wrap("triage_refresh_messages", "", sc, handleRefreshMessages))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sess := sc.Session()
	if err := sess.EnsureLoaded(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load messages: %v", err)), nil
	}

	msgs := sess.Messages()
	list := MessageList{
		Origin:   string(sess.Origin()),
		Count:    len(msgs),
		Messages: make([]MessageSummary, 0, len(msgs)),
	}
	for _, m := range msgs {
		list.Messages = append(list.Messages, MessageSummary{
			ID:      m.ID,
			Subject: m.Subject,
			From:    m.From,
			Preview: m.Preview(previewLength),
		})
	}
	return jsonResult(list)
}

func handleRefreshMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sess := sc.Session()
	n, err := sess.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh messages: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %d messages from %s", n, sess.Origin())), nil
}
