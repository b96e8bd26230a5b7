package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// Account identifiers are emails; never use them as label values directly.

// ExtractUserDomain extracts the domain part from an email address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("default")           // "service_account"
//	ExtractUserDomain("")                  // "service_account"
//	ExtractUserDomain("invalid@")          // "unknown"
func ExtractUserDomain(account string) string {
	if account == "" || account == "default" {
		return "service_account"
	}

	parts := strings.Split(account, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Calendar API operations.
const (
	OperationList   = "list"
	OperationCreate = "create"
)

// Booking outcomes, matching the error kinds.
const (
	OutcomeBooked       = "booked"
	OutcomeConflict     = "slot_conflict"
	OutcomeInvalidInput = "invalid_input"
	OutcomeUpstream     = "upstream_failure"
)
