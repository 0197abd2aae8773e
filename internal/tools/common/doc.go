// Package common provides shared utilities for MCP tool implementations.
// It contains the argument helpers and the instrumentation wrapper used by
// every tool so that metrics, spans and audit records are consistent.
package common
