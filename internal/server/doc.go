// Package server provides the HTTP surface of CalMate and the state shared
// with the MCP server.
//
// # Key Components
//
// ServerContext carries the booking service, the per-user token store, the
// Google OAuth client configuration, instrumentation and the chat responder.
//
// APIServer is a gin engine serving:
//   - POST /check-availability, /book-event, /find-open-slots, /book and /chat
//   - GET /auth/google and /auth/google/callback (the consent flow, see OAuthFlow)
//   - GET /healthz, /readyz and /healthz/detailed
//
// Failed requests return {"error": ..., "kind": ...} with 400 for invalid
// input, 409 for an occupied slot and 502 for upstream failures.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
//
// # Security Features
//
//   - OAuth state is signed into a short-lived HttpOnly cookie (gorilla/securecookie)
//   - Redirect URIs must be HTTPS outside of localhost
//   - Causes of upstream failures are logged, never returned to clients
//   - Request bodies are capped at 1 MiB
package server
