package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyAccount   = "account"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyErrorKind = "error_kind"
	KeyTool      = "tool"
	KeyRequestID = "request_id"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// New builds a slog.Logger writing to w.
// level is one of debug, info, warn, error; format is text or json.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected text or json)", format)
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithAccount returns a logger with the (anonymized) account attribute set.
func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(Account(account))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Account returns a slog attribute for a calendar account.
// Email accounts are hashed; the shared service account is logged as "default".
func Account(account string) slog.Attr {
	if account == "" || account == "default" {
		return slog.String(KeyAccount, "default")
	}
	return slog.String(KeyAccount, AnonymizeEmail(account))
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// ErrorKind returns a slog attribute for a classified error kind.
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken returns a masked version of a token for logging.
// Only the length is reported, never any content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// Truncate shortens free text (user messages, model replies) for debug logs.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
