package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/tools/scheduling_tools"
)

const (
	categoryChat    = "Chat and MCP Tools"
	categoryMCPOnly = "MCP-only Tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// No credentials are touched: sessions are only opened when a tool runs.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(context.Background(), cfg, appOptions{logOutput: os.Stderr})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	markdown, err := toolsMarkdown(a.sc)
	if err != nil {
		return err
	}

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// toolsMarkdown registers the tools on a scratch MCP server and renders them.
func toolsMarkdown(sc *server.ServerContext) (string, error) {
	mcpSrv := newMCPServer()
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, sc); err != nil {
		return "", fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	chatTools := make(map[string]bool)
	for _, t := range scheduling_tools.ChatTools(sc) {
		chatTools[t.Name] = true
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	return generateToolsMarkdown(tools, chatTools), nil
}

func generateToolsMarkdown(tools []mcp.Tool, chatTools map[string]bool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running calmate as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools, chatTools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Accounts\n\n")
	sb.WriteString("Every tool accepts an optional `user_email` parameter selecting a Google account connected through `/auth/google` or `calmate auth`:\n\n")
	sb.WriteString("- **Default behavior:** Without `user_email` the service-account calendar is used\n")
	sb.WriteString("- **Chat:** The chat endpoint always acts on the account of the request; the model cannot pick another one\n\n")

	sb.WriteString("## Times\n\n")
	sb.WriteString("Times are free text (`tomorrow at 5pm`, `2025-03-11 14:30`) interpreted in the configured time zone. ")
	sb.WriteString("A time without am/pm is read as AM, except for `today` after noon.\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool, chatTools map[string]bool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := categoryMCPOnly
		if chatTools[tool.Name] {
			category = categoryChat
		}
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			propType := getPropertyType(propMap)
			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, propType, requiredStr))

			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
