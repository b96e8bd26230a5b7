package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/instrumentation"
)

// Reminder overrides applied to events with attendees.
const (
	EmailReminderMinutes = 30
	PopupReminderMinutes = 10
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// CalendarID is the calendar every operation targets ("primary" for user tokens)
	CalendarID string

	// Location is the target zone for request parameters and results
	Location *time.Location

	// Metrics records calendar API calls. Optional.
	Metrics *instrumentation.Metrics

	// NewRequestID generates conference request ids. Defaults to uuid.NewString.
	NewRequestID func() string
}

// Client wraps the Google Calendar service for a single calendar.
// Every call goes to the remote service; nothing is cached locally.
type Client struct {
	svc          *calendar.Service
	calendarID   string
	loc          *time.Location
	metrics      *instrumentation.Metrics
	newRequestID func() string
}

// NewClient creates a Client. Authentication comes from opts, typically
// option.WithHTTPClient with an OAuth2 client.
func NewClient(ctx context.Context, cfg ClientConfig, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.NewRequestID == nil {
		cfg.NewRequestID = uuid.NewString
	}

	return &Client{
		svc:          svc,
		calendarID:   cfg.CalendarID,
		loc:          cfg.Location,
		metrics:      cfg.Metrics,
		newRequestID: cfg.NewRequestID,
	}, nil
}

// CalendarID returns the calendar this client operates on
func (c *Client) CalendarID() string {
	return c.calendarID
}

// ListEvents lists the single events intersecting r, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, r TimeRange) (events []EventSummary, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationList, c.calendarID)
	start := time.Now()
	defer func() {
		c.metrics.RecordCalendarOperation(ctx, instrumentation.OperationList, statusOf(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	resp, err := c.svc.Events.List(c.calendarID).
		TimeMin(r.Start.In(c.loc).Format(time.RFC3339)).
		TimeMax(r.End.In(c.loc).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	for _, event := range resp.Items {
		events = append(events, toEventSummary(event, c.loc))
	}
	return events, nil
}

// IsAvailable reports whether the calendar has no events in r.
// The remote service decides what intersects the window; no local overlap
// math is applied.
func (c *Client) IsAvailable(ctx context.Context, r TimeRange) (bool, error) {
	events, err := c.ListEvents(ctx, r)
	if err != nil {
		return false, err
	}
	return len(events) == 0, nil
}

// CreateEvent creates a timed event. When attendees are given the event also
// gets a Google Meet link, email/popup reminders and invitations are sent.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (summary *EventSummary, err error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationCreate, c.calendarID)
	start := time.Now()
	defer func() {
		c.metrics.RecordCalendarOperation(ctx, instrumentation.OperationCreate, statusOf(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Range.Start.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: input.Range.End.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
	}

	call := c.svc.Events.Insert(c.calendarID, event)

	if len(input.Attendees) > 0 {
		for _, email := range input.Attendees {
			event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
		}

		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: c.newRequestID(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}

		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: EmailReminderMinutes},
				{Method: "popup", Minutes: PopupReminderMinutes},
			},
			// UseDefault=false is the zero value and would otherwise be omitted.
			ForceSendFields: []string{"UseDefault"},
		}

		call = call.ConferenceDataVersion(1).SendUpdates("all")
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s := toEventSummary(created, c.loc)
	return &s, nil
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
