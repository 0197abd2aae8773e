package triage_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/mailresponder/internal/instrumentation"
	"github.com/teemow/mailresponder/internal/memory"
	"github.com/teemow/mailresponder/internal/server"
	"github.com/teemow/mailresponder/internal/tools/batch"
	"github.com/teemow/mailresponder/internal/tools/common"
	"github.com/teemow/mailresponder/internal/triage"
)

// ClassifyResult is the triage_classify result.
type ClassifyResult struct {
	ID       string          `json:"id"`
	Category triage.Category `json:"category"`
	Error    string          `json:"error,omitempty"`
}

// DraftResult is the triage_draft result.
type DraftResult struct {
	ID       string         `json:"id"`
	Reply    string         `json:"reply"`
	Fallback bool           `json:"fallback"`
	Feedback []memory.Match `json:"feedback_used"`
	Error    string         `json:"error,omitempty"`
}

// RefineResult is the triage_refine result.
type RefineResult struct {
	ID            string `json:"id"`
	OriginalDraft string `json:"original_draft"`
	RefinedReply  string `json:"refined_reply"`
	FeedbackUsed  string `json:"feedback_used"`
	Refined       bool   `json:"refined"`
	Error         string `json:"error,omitempty"`
}

// RegisterStepTools registers the classify, draft, refine and process tools
func RegisterStepTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	classifyTool := mcp.NewTool("triage_classify",
		mcp.WithDescription("Classify a message as URGENT, WORK, PERSONAL or SPAM. Returns UNKNOWN when the model fails"),
		mcp.WithString(common.ArgEmailID,
			mcp.Required(),
			mcp.Description("The ID of the message to classify"),
		),
	)
	s.AddTool(classifyTool, wrap("triage_classify", instrumentation.StepClassify, sc, handleClassify))

	draftTool := mcp.NewTool("triage_draft",
		mcp.WithDescription("Draft a concise, polite reply. Similar past feedback is included in the prompt"),
		mcp.WithString(common.ArgEmailID,
			mcp.Required(),
			mcp.Description("The ID of the message to reply to"),
		),
	)
	s.AddTool(draftTool, wrap("triage_draft", instrumentation.StepDraft, sc, handleDraft))

	refineTool := mcp.NewTool("triage_refine",
		mcp.WithDescription("Improve a draft reply with feedback. The feedback is stored and used for future drafts"),
		mcp.WithString(common.ArgEmailID,
			mcp.Required(),
			mcp.Description("The ID of the message the draft replies to"),
		),
		mcp.WithString(common.ArgDraft,
			mcp.Required(),
			mcp.Description("The draft reply to improve"),
		),
		mcp.WithString(common.ArgFeedback,
			mcp.Required(),
			mcp.Description("Feedback on the draft (e.g., 'Make it more formal')"),
		),
	)
	s.AddTool(refineTool, wrap("triage_refine", instrumentation.StepRefine, sc, handleRefine))

	processTool := mcp.NewTool("triage_process",
		mcp.WithDescription("Classify, draft and optionally refine one or more messages. Without email_id every message is processed"),
		mcp.WithString(common.ArgEmailID,
			mcp.Description("Message ID (string) or array of message IDs to process (default: all messages)"),
		),
		mcp.WithString(common.ArgFeedback,
			mcp.Description("Feedback applied to every draft; when set the drafts are refined and the feedback stored"),
		),
	)
	s.AddTool(processTool, wrap("triage_process", "", sc, handleProcess))

	return nil
}

func handleClassify(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id := common.MessageIDFromArgs(request.GetArguments())
	if _, errResult := lookupMessage(ctx, sc, id); errResult != nil {
		return errResult, nil
	}

	category, err := sc.Session().Classify(ctx, id)
	res := ClassifyResult{ID: id, Category: category}
	if err != nil {
		common.ReportFallback(ctx, err)
		res.Error = err.Error()
	}
	return jsonResult(res)
}

func handleDraft(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id := common.MessageIDFromArgs(request.GetArguments())
	if _, errResult := lookupMessage(ctx, sc, id); errResult != nil {
		return errResult, nil
	}

	draft, err := sc.Session().Draft(ctx, id)
	res := DraftResult{ID: id, Reply: draft.Text, Fallback: draft.Fallback, Feedback: draft.Feedback}
	if res.Feedback == nil {
		res.Feedback = []memory.Match{}
	}
	if err != nil {
		common.ReportFallback(ctx, err)
		res.Error = err.Error()
	}
	return jsonResult(res)
}

func handleRefine(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id := common.MessageIDFromArgs(args)

	draft, err := common.RequiredString(args, common.ArgDraft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	feedback, err := common.RequiredString(args, common.ArgFeedback)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, errResult := lookupMessage(ctx, sc, id); errResult != nil {
		return errResult, nil
	}

	refinement, err := sc.Session().Refine(ctx, id, draft, feedback)
	res := RefineResult{
		ID:            id,
		OriginalDraft: draft,
		RefinedReply:  refinement.Text,
		FeedbackUsed:  feedback,
		Refined:       refinement.Refined,
	}
	if err != nil {
		common.ReportFallback(ctx, err)
		res.Error = err.Error()
	}
	return jsonResult(res)
}

func handleProcess(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	feedback := common.OptionalString(args, common.ArgFeedback)
	sess := sc.Session()

	var ids []string
	if raw, ok := args[common.ArgEmailID]; ok && raw != nil && raw != "" {
		var err error
		ids, err = batch.ParseStringOrArray(raw, common.ArgEmailID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		if err := sess.EnsureLoaded(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load messages: %v", err)), nil
		}
		for _, m := range sess.Messages() {
			ids = append(ids, m.ID)
		}
		if len(ids) == 0 {
			return mcp.NewToolResultError("no messages available"), nil
		}
	}

	results := batch.ProcessBatch(ctx, ids, func(ctx context.Context, id string) (any, error) {
		return sess.Process(ctx, id, feedback)
	})

	var degraded []string
	for _, r := range results {
		if r.Status == batch.StatusDegraded {
			degraded = append(degraded, r.ID)
		}
	}
	if len(degraded) > 0 {
		common.ReportFallback(ctx, fmt.Errorf("degraded steps for %s", strings.Join(degraded, ", ")))
	}

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
