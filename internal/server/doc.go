// Package server provides the MCP server context and the HTTP plumbing
// around it for the mailresponder application.
//
// # Key Components
//
// ServerContext owns the triage session shared by all tool handlers and
// tracks shutdown.
//
// HTTPServer serves the MCP streamable-http transport on /mcp together with
// the /healthz, /readyz and /healthz/detailed probes. Every request is
// counted in the http_requests_total metric.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, separate from
// MCP traffic.
package server
