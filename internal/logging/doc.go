// Package logging provides structured logging utilities for the mailresponder application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from configuration (level, text or JSON)
//   - Consistent attribute naming (message id, triage step, category, backend)
//   - PII sanitization (sender anonymization, secret masking)
//   - Logger adapter interface for flexibility
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithStep(slog.Default(), "draft")
//	logger.Info("draft generated",
//	    logging.MessageID(msg.ID),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("message fetched", logging.Sender(msg.From))
//
// # Security Considerations
//
//   - Sender addresses are hashed to prevent PII leakage while allowing correlation
//   - Passwords and tokens are never logged directly
//   - Message bodies and drafts are only logged truncated, at debug level
package logging
