package common

import (
	"context"

	"github.com/teemow/calmate/internal/chat"
	"github.com/teemow/calmate/internal/mcpauth"
)

// DefaultAccount is the service account calendar.
const DefaultAccount = "default"

// GetAccountFromArgs extracts the calendar account for a tool call.
//
// Priority order:
//  1. Account bound to the chat session (set by the /chat handler)
//  2. Caller signed in on the HTTP MCP transport
//  3. Explicit "user_email" argument in request
//  4. "default"
func GetAccountFromArgs(ctx context.Context, args map[string]interface{}) string {
	if account := chat.AccountFromContext(ctx); account != "" {
		return account
	}
	if account := mcpauth.AccountFromContext(ctx); account != "" {
		return account
	}

	if accountVal, ok := args["user_email"].(string); ok && accountVal != "" {
		return accountVal
	}
	return DefaultAccount
}
