// Package cmd implements the command-line interface for calmate.
//
// This package provides the following commands:
//   - serve: Start the HTTP API (scheduling endpoints, chat, Google sign-in)
//   - mcp: Serve the scheduling tools over MCP (stdio or OAuth-protected streamable HTTP)
//   - extract: Run the time extractor on a piece of text
//   - auth: Connect a Google account from the terminal
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Configuration is read from the environment and an optional .env file; see
// internal/config.
package cmd
