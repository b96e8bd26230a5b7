package common

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calmate/internal/booking"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
	"github.com/teemow/calmate/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

var errToolResult = errors.New("tool returned an error result")

// Observe runs fn as one invocation of toolName. It records the invocation
// metric, labelled with the channel carried by ctx, and a tool span.
// metrics may be nil.
func Observe(
	ctx context.Context,
	metrics *instrumentation.Metrics,
	toolName string,
	fn func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	ctx, span := instrumentation.StartToolSpan(ctx, toolName)
	start := time.Now()

	result, err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	metrics.RecordToolInvocation(ctx, booking.ChannelFromContext(ctx), toolName, status, time.Since(start))
	instrumentation.EndSpan(span, err)

	return result, err
}

// InstrumentedToolHandler wraps an MCP tool handler with metrics, tracing and
// a debug log line. The request is tagged with the MCP channel so bookings made
// through it are attributed correctly.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = booking.WithChannel(ctx, booking.ChannelMCP)

		var result *mcp.CallToolResult
		start := time.Now()
		_, err := Observe(ctx, sc.Metrics(), toolName, func(ctx context.Context) (interface{}, error) {
			var err error
			result, err = handler(ctx, request)
			if err == nil && result != nil && result.IsError {
				return result, errToolResult
			}
			return result, err
		})

		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		sc.Logger().Debug("tool invoked",
			logging.Tool(toolName),
			logging.Account(GetAccountFromArgs(ctx, request.GetArguments())),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, time.Since(start)))

		if errors.Is(err, errToolResult) {
			return result, nil
		}
		return result, err
	}
}
