// Package booking implements the scheduling operations shared by the HTTP
// API, the chat tools and the MCP server:
//
//   - Workflow books a 30 minute event from free text (extract, re-parse,
//     availability check, create).
//   - SlotFinder lists the free one-hour-granularity slots of a day.
//   - Service validates request schemas, resolves the calendar session for
//     the requested account and records metrics and the audit trail.
//
// Every failure carries an apperror kind: InvalidInput for unparseable or
// missing input, SlotConflict when the range is occupied and UpstreamFailure
// for calendar or credential errors.
package booking
