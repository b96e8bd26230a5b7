// Package mcpauth protects the streamable HTTP MCP transport with the
// github.com/giantswarm/mcp-oauth authorization server.
//
// MCP clients register, sign in with Google and receive an access token for
// this server. The Google token obtained during that sign-in is kept in the
// mcp-oauth token store under the caller's email, so tool calls made by the
// caller open a session on their own calendar.
package mcpauth
