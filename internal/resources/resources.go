package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/timeparse"
)

// Resource URIs.
const (
	PolicyURI   = "calmate://policy"
	AccountsURI = "calmate://accounts"
)

// Policy describes how requests are interpreted and booked.
type Policy struct {
	TimeZone               string `json:"time_zone"`
	DateTimeLayout         string `json:"datetime_layout"`
	AmbiguousTimeDefault   string `json:"ambiguous_time_default"`
	TodayAware             bool   `json:"today_aware"`
	BookingDurationMinutes int    `json:"booking_duration_minutes"`
	BookingSummary         string `json:"booking_summary"`
	SlotWindowStartHour    int    `json:"slot_window_start_hour"`
	SlotWindowEndHour      int    `json:"slot_window_end_hour"`
}

// Accounts lists the Google accounts usable as user_email.
type Accounts struct {
	SignInEnabled bool     `json:"sign_in_enabled"`
	Connected     []string `json:"connected"`
}

// RegisterResources registers the scheduling resources with the MCP server.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Config() == nil {
		return fmt.Errorf("server context with a configuration is required")
	}

	policyResource := mcp.NewResource(
		PolicyURI,
		"Scheduling Policy",
		mcp.WithResourceDescription("Time zone, ambiguous-time rule, default duration and slot window applied to every booking"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(policyResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handlePolicy(ctx, request, sc)
	})

	accountsResource := mcp.NewResource(
		AccountsURI,
		"Connected Accounts",
		mcp.WithResourceDescription("Google accounts that completed the consent flow and can be passed as user_email"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(accountsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAccounts(ctx, request, sc)
	})

	return nil
}

func handlePolicy(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()
	policy := Policy{
		TimeZone:               cfg.TimeZone.String(),
		DateTimeLayout:         timeparse.Layout,
		AmbiguousTimeDefault:   string(timeparse.ParseMeridiem(cfg.AmbiguousTimeDefault)),
		TodayAware:             cfg.AmbiguousTimeTodayAware,
		BookingDurationMinutes: int(cfg.BookingDuration.Minutes()),
		BookingSummary:         cfg.BookingSummary,
		SlotWindowStartHour:    cfg.SlotWindowStartHour,
		SlotWindowEndHour:      cfg.SlotWindowEndHour,
	}
	return jsonContents(request.Params.URI, policy)
}

func handleAccounts(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	accounts := Accounts{
		SignInEnabled: sc.OAuthConfig() != nil,
		Connected:     []string{},
	}

	if tokens := sc.Tokens(); tokens != nil {
		connected, err := tokens.Accounts()
		if err != nil {
			return nil, fmt.Errorf("failed to list connected accounts: %w", err)
		}
		if connected != nil {
			accounts.Connected = connected
		}
	}

	return jsonContents(request.Params.URI, accounts)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
