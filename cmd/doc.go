// Package cmd implements the command-line interface for mailresponder.
//
// This package provides the following commands:
//   - process: Classify messages and draft replies, optionally refined with feedback
//   - serve: Start the MCP server to provide triage tools for AI assistants
//   - memory: Search and inspect the stored reply feedback
//   - auth: Authorize Gmail API access for an account
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The process command is the default command when no subcommand is specified.
package cmd
