// Package logging provides structured logging utilities for CalMate.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create the process logger once and derive scoped loggers from it:
//
//	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
//	logger = logging.WithOperation(logger, "calendar.create_event")
//	logger.Info("event created", logging.Status(logging.StatusSuccess))
//
// Account identifiers are emails and are hashed before they reach the log:
//
//	logger.Info("booking", logging.Account(account))
//
// OAuth tokens are never logged directly; use SanitizeToken.
package logging
