package booking

import (
	"context"

	"github.com/teemow/calmate/internal/calendar"
)

// Calendar is the part of calendar.Client the booking operations use.
type Calendar interface {
	IsAvailable(ctx context.Context, r calendar.TimeRange) (bool, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.EventSummary, error)
}

// SessionFunc resolves an account ("" or "default" for the service account,
// otherwise an email) to a calendar session.
type SessionFunc func(ctx context.Context, account string) (Calendar, error)

// FactorySessions adapts a calendar.SessionFactory to a SessionFunc.
func FactorySessions(f *calendar.SessionFactory) SessionFunc {
	return func(ctx context.Context, account string) (Calendar, error) {
		c, err := f.ForAccount(ctx, account)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// CheckAvailabilityRequest asks whether a range is free.
type CheckAvailabilityRequest struct {
	UserEmail string `json:"user_email,omitempty" validate:"omitempty,account"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// AvailabilityResponse is the result of CheckAvailability.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// BookEventRequest creates an event with explicit fields.
type BookEventRequest struct {
	UserEmail string   `json:"user_email,omitempty" validate:"omitempty,account"`
	Summary   string   `json:"summary" validate:"required,max=1024"`
	StartTime string   `json:"start_time" validate:"required"`
	EndTime   string   `json:"end_time" validate:"required"`
	Attendees []string `json:"attendees,omitempty" validate:"omitempty,max=50,dive,email"`
}

// BookEventResponse carries the links of a created event.
type BookEventResponse struct {
	CalendarLink string `json:"calendarLink"`
	MeetLink     string `json:"meetLink,omitempty"`
}

// FindOpenSlotsRequest lists free slots of a day.
type FindOpenSlotsRequest struct {
	UserEmail       string `json:"user_email,omitempty" validate:"omitempty,account"`
	Date            string `json:"date" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=600"`
}

// OpenSlotsResponse is the result of FindOpenSlots. OpenSlots is never nil.
type OpenSlotsResponse struct {
	OpenSlots []calendar.TimeRange `json:"openSlots"`
}

// BookRequest books from free text.
type BookRequest struct {
	UserEmail string `json:"user_email,omitempty" validate:"omitempty,account"`
	UserInput string `json:"user_input" validate:"required,max=2000"`
}

// StatusSuccess is the only status a successful booking reports.
const StatusSuccess = "success"

// BookingResult is the result of a free-text booking.
type BookingResult struct {
	Status       string `json:"status"`
	CalendarLink string `json:"calendarLink"`

	// Slot is the booked range. Not part of the wire format.
	Slot calendar.TimeRange `json:"-"`
}
