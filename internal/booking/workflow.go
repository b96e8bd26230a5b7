package booking

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar"
	"github.com/teemow/calmate/internal/timeparse"
)

const (
	// DefaultBookingDuration is the length of free-text bookings.
	DefaultBookingDuration = 30 * time.Minute

	// DefaultBookingSummary is the title of free-text bookings.
	DefaultBookingSummary = "CalMate Booking"
)

var (
	connectiveAt = regexp.MustCompile(`\bat\b`)
	spaces       = regexp.MustCompile(`\s+`)
)

// stripConnective removes the word "at" from an extracted timestamp
// ("2025-03-11 at 03:00 PM" becomes "2025-03-11 03:00 PM").
func stripConnective(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(connectiveAt.ReplaceAllString(s, ""), " "))
}

// Workflow books an event from free text. Each step is a hard failure
// boundary; nothing is retried and nothing needs compensating because the
// only side effect is the final create call.
type Workflow struct {
	parser   *timeparse.Parser
	duration time.Duration
	summary  string
}

// WorkflowOption configures a Workflow.
type WorkflowOption func(*Workflow)

// WithDuration overrides DefaultBookingDuration.
func WithDuration(d time.Duration) WorkflowOption {
	return func(w *Workflow) {
		if d > 0 {
			w.duration = d
		}
	}
}

// WithSummary overrides DefaultBookingSummary.
func WithSummary(summary string) WorkflowOption {
	return func(w *Workflow) {
		if summary != "" {
			w.summary = summary
		}
	}
}

// NewWorkflow creates a Workflow using parser for extraction and re-parsing.
func NewWorkflow(parser *timeparse.Parser, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		parser:   parser,
		duration: DefaultBookingDuration,
		summary:  DefaultBookingSummary,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Book extracts a start time from text and books [start, start+duration) on cal.
//
// Errors:
//   - InvalidInput when no date/time is found or the extracted value does not re-parse
//   - SlotConflict when the calendar reports the range as occupied
//   - UpstreamFailure when the availability check or the create call fails
func (w *Workflow) Book(ctx context.Context, cal Calendar, text string) (*BookingResult, error) {
	extracted := w.parser.Extract(text)
	if extracted.Unknown() {
		return nil, apperror.InvalidInput("could not find a date and time in %q", text)
	}

	start, err := w.parser.Parse(stripConnective(extracted.Text))
	if err != nil {
		return nil, apperror.InvalidInput("could not parse extracted time %q", extracted.Text)
	}

	slot, err := calendar.NewTimeRange(start, start.Add(w.duration), w.parser.Location())
	if err != nil {
		return nil, err
	}

	free, err := cal.IsAvailable(ctx, slot)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to check availability")
	}
	if !free {
		return nil, apperror.SlotConflict("the slot %s is already booked", extracted.Text)
	}

	event, err := cal.CreateEvent(ctx, calendar.EventInput{
		Summary: w.summary,
		Range:   slot,
	})
	if err != nil {
		return nil, apperror.Upstream(err, "failed to create event")
	}

	return &BookingResult{
		Status:       StatusSuccess,
		CalendarLink: event.HTMLLink,
		Slot:         slot,
	}, nil
}
