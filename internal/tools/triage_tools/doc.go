// Package triage_tools provides MCP (Model Context Protocol) tools for the
// email triage session.
//
// This package exposes the triage pipeline through MCP tools that can be
// called by AI agents or other MCP clients:
//
// Message Management:
//   - triage_list_messages: List the messages of the current session
//   - triage_refresh_messages: Reload messages from the mailbox, cache or sample set
//
// Triage Steps:
//   - triage_classify: Label a message as URGENT, WORK, PERSONAL or SPAM
//   - triage_draft: Draft a reply, informed by similar past feedback
//   - triage_refine: Improve a draft with feedback and remember the feedback
//   - triage_process: Run classify, draft and optionally refine for one or
//     more messages
//
// Feedback Memory:
//   - memory_search: Find stored feedback similar to a query
//
// Example usage:
//
//	// Draft a reply for message 42
//	triage_draft(email_id: "42")
//
//	// Refine it and store the feedback for future drafts
//	triage_refine(email_id: "42", draft: "...", feedback: "Make it more formal")
//
//	// Process several messages at once
//	triage_process(email_id: ["41", "42"], feedback: "Keep it short")
//
// A failing model never fails a tool call. The degraded value is returned
// (UNKNOWN category, fallback draft, unchanged draft) and the invocation is
// recorded with the fallback status.
package triage_tools
