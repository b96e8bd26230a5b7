package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/calmate/internal/apperror"
)

// TimeRange is a half-open interval [Start, End) in the target zone.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange validates start < end and normalises both ends to loc.
func NewTimeRange(start, end time.Time, loc *time.Location) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, apperror.InvalidInput("start and end times are required")
	}
	if !start.Before(end) {
		return TimeRange{}, apperror.InvalidInput("start time %s must be before end time %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether r and o share any instant.
// Adjacent ranges do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Range       TimeRange
	Attendees   []string
}

// EventSummary represents a simplified calendar event
type EventSummary struct {
	ID        string
	Summary   string
	Start     time.Time
	End       time.Time
	Status    string
	Attendees []string
	HTMLLink  string
	MeetLink  string
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event, loc *time.Location) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
	}

	summary.Start = parseEventTime(event.Start, loc)
	summary.End = parseEventTime(event.End, loc)

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, att.Email)
	}

	// Google Meet link
	if event.HangoutLink != "" {
		summary.MeetLink = event.HangoutLink
	}
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary
}

// parseEventTime reads a timed or all-day event boundary.
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t.In(loc)
		}
	} else if edt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", edt.Date, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
