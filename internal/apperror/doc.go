// Package apperror defines the error taxonomy shared by the booking workflow,
// the chat dispatcher and the HTTP API.
//
// Every failure surfaced to a caller carries one of three kinds:
//   - invalid_input: unparseable or missing date/time or request field
//   - slot_conflict: the requested range is occupied
//   - upstream_failure: the calendar or LLM API failed (network, credentials, server errors)
package apperror
