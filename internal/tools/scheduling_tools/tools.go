package scheduling_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/chat"
	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/tools/common"
)

// RegisterSchedulingTools registers the scheduling tools with the MCP server
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil || sc.Booking() == nil {
		return fmt.Errorf("server context with a booking service is required")
	}

	for _, op := range operations {
		opts := append([]mcp.ToolOption{mcp.WithDescription(op.description)}, op.mcpOptions...)
		tool := mcp.NewTool(op.name, opts...)
		s.AddTool(tool, common.InstrumentedToolHandler(op.name, sc, mcpHandler(op, sc)))
	}

	return nil
}

func mcpHandler(op operation, sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := common.GetAccountFromArgs(ctx, args)

		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result, err := op.run(ctx, sc.Booking(), account, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", apperror.KindOf(err), err)), nil
		}

		return mcp.NewToolResultText(op.text(result)), nil
	}
}

// ChatTools returns the tools offered to the chat model. They act on the
// account bound with chat.WithAccount, never on one named by the model.
func ChatTools(sc *server.ServerContext) []chat.Tool {
	tools := make([]chat.Tool, 0, len(operations))
	for _, op := range operations {
		if op.parameters == nil {
			continue
		}
		tools = append(tools, chat.Tool{
			Name:        op.name,
			Description: op.description,
			Parameters:  *op.parameters,
			Call: func(ctx context.Context, arguments string) (interface{}, error) {
				return common.Observe(ctx, sc.Metrics(), op.name, func(ctx context.Context) (interface{}, error) {
					return op.run(ctx, sc.Booking(), chat.AccountFromContext(ctx), []byte(arguments))
				})
			},
		})
	}
	return tools
}
