// Package timeparse turns free text into calendar timestamps.
//
// The Parser has two entry points:
//
//   - Extract is the best-effort extractor used by the booking pipeline. It
//     applies the AM/PM disambiguation policy, searches the text for the
//     first date/time expression and formats the match in the target zone
//     as "2006-01-02 at 03:04 PM", or returns the "unknown" sentinel.
//   - Parse is the general-purpose parser used for loosely-typed date
//     strings arriving through the API and the chat tools. It accepts the
//     extractor's own output, machine formats and natural language.
//
// Natural language is handled by github.com/olebedev/when, machine formats
// by github.com/araddon/dateparse.
package timeparse
