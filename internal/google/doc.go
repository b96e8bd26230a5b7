// Package google provides OAuth2 authentication and token management for Google APIs.
//
// Two kinds of credentials are supported:
//
//   - Service-account credentials (a JSON key file) used for the shared
//     "default" calendar.
//   - Per-user OAuth tokens obtained through the consent flow, persisted by
//     FileTokenStore as one JSON file per account email.
//
// The TokenProvider interface allows different token sources to be plugged in.
package google
