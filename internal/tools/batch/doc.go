// Package batch provides common utilities for batch operations across the
// MCP tools.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Running an operation per message id with partial failures
//   - Formatting batch results in a consistent structure
package batch
