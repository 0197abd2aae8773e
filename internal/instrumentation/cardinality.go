package instrumentation

import (
	"net/mail"
	"strings"
)

// Cardinality management helpers for metrics and logs.
// Sender addresses and message ids are unbounded; never use them as metric
// labels. Use these helpers to reduce them to a bounded value first.

// ExtractSenderDomain returns the domain part of a From header value.
// Both bare addresses and "Name <addr>" forms are accepted.
//
// Example:
//
//	ExtractSenderDomain("jane@example.com")              // "example.com"
//	ExtractSenderDomain("Jane Doe <jane@example.com>")   // "example.com"
//	ExtractSenderDomain("invalid")                       // "unknown"
//	ExtractSenderDomain("")                              // "unknown"
func ExtractSenderDomain(from string) string {
	if from == "" {
		return "unknown"
	}

	addr := from
	if parsed, err := mail.ParseAddress(from); err == nil {
		addr = parsed.Address
	}

	parts := strings.Split(addr, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Feedback memory operation types.
const (
	OperationAdd    = "add"
	OperationSearch = "search"
	OperationCount  = "count"
	OperationList   = "list"
)
