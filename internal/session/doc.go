// Package session ties the message sources, the triage steps and the
// feedback memory together for one run of the assistant.
//
// A Session owns the current message set. It is created once per CLI
// invocation or per MCP server and passed explicitly to whatever drives it;
// there is no package-level state.
package session
