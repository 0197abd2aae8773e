package triage_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/server"
	"github.com/teemow/mailresponder/internal/tools/common"
)

// maxSearchLimit bounds memory_search results.
const maxSearchLimit = 50

// SearchResult is the memory_search result.
type SearchResult struct {
	Query   string         `json:"query"`
	Matches []memory.Match `json:"matches"`
}

// RegisterMemoryTools registers the feedback memory tools
func RegisterMemoryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	searchTool := mcp.NewTool("memory_search",
		mcp.WithDescription("Search stored reply feedback by similarity. Returns the closest entries first"),
		mcp.WithString(common.ArgQuery,
			mcp.Required(),
			mcp.Description("Text to compare against stored feedback (e.g., an email body)"),
		),
		mcp.WithNumber(common.ArgLimit,
			mcp.Description(fmt.Sprintf("Maximum number of results to return (default: %d, max: %d)", memory.DefaultRetrieveCount, maxSearchLimit)),
		),
	)
	s.AddTool(searchTool, wrap("memory_search", "", sc, handleMemorySearch))

	return nil
}

func handleMemorySearch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := common.RequiredString(args, common.ArgQuery)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := common.OptionalInt(args, common.ArgLimit, memory.DefaultRetrieveCount)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit < 1 || limit > maxSearchLimit {
		return mcp.NewToolResultError(fmt.Sprintf("%s must be between 1 and %d", common.ArgLimit, maxSearchLimit)), nil
	}

	matches, err := sc.Session().SearchFeedback(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search feedback: %v", err)), nil
	}
	if matches == nil {
		matches = []memory.Match{}
	}
	return jsonResult(SearchResult{Query: query, Matches: matches})
}
