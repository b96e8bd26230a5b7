// Package resources provides MCP resources for exposing scheduling context.
// Resources are read-only data sources that MCP clients can fetch before
// calling a tool: the booking policy the server applies to free-text times
// and the Google accounts that can be passed as user_email.
package resources
