package booking

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar"
	"github.com/teemow/calmate/internal/calendar/calendartest"
	"github.com/teemow/calmate/internal/instrumentation"
)

func newTestService(cal Calendar, audit *instrumentation.AuditLogger) *Service {
	return NewService(ServiceConfig{
		Sessions: sessionsFor(cal),
		Parser:   testParser(),
		Slots:    NewSlotFinder(SlotFinderConfig{Location: ist}),
		Audit:    audit,
	})
}

func TestService_CheckAvailability(t *testing.T) {
	cal := &fakeCalendar{}
	cal.book(calendar.TimeRange{
		Start: time.Date(2025, 3, 11, 10, 0, 0, 0, ist),
		End:   time.Date(2025, 3, 11, 11, 0, 0, 0, ist),
	})
	svc := newTestService(cal, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		req      CheckAvailabilityRequest
		want     bool
		wantKind apperror.Kind
	}{
		{name: "free iso", req: CheckAvailabilityRequest{StartTime: "2025-03-11T12:00:00+05:30", EndTime: "2025-03-11T13:00:00+05:30"}, want: true},
		{name: "busy natural language", req: CheckAvailabilityRequest{StartTime: "tomorrow at 10 am", EndTime: "tomorrow at 11 am"}, want: false},
		{name: "missing end", req: CheckAvailabilityRequest{StartTime: "2025-03-11T12:00:00+05:30"}, wantKind: apperror.KindInvalidInput},
		{name: "bad email", req: CheckAvailabilityRequest{UserEmail: "not-an-email", StartTime: "x", EndTime: "y"}, wantKind: apperror.KindInvalidInput},
		{name: "unparseable", req: CheckAvailabilityRequest{StartTime: "whenever", EndTime: "later"}, wantKind: apperror.KindInvalidInput},
		{name: "inverted", req: CheckAvailabilityRequest{StartTime: "2025-03-11T13:00:00+05:30", EndTime: "2025-03-11T12:00:00+05:30"}, wantKind: apperror.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.CheckAvailability(ctx, tt.req)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperror.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Available)
		})
	}
}

func TestService_BookEvent(t *testing.T) {
	cal := &fakeCalendar{}
	svc := newTestService(cal, nil)
	ctx := context.Background()

	req := BookEventRequest{
		Summary:   "Design review",
		StartTime: "2025-03-11T15:00:00+05:30",
		EndTime:   "2025-03-11T16:00:00+05:30",
		Attendees: []string{"a@example.com"},
	}
	resp, err := svc.BookEvent(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CalendarLink)
	assert.NotEmpty(t, resp.MeetLink)
	assert.Equal(t, []string{"a@example.com"}, cal.created()[0].Attendees)

	_, err = svc.BookEvent(ctx, req)
	assert.True(t, apperror.Is(err, apperror.KindSlotConflict))

	req.Attendees = []string{"nope"}
	_, err = svc.BookEvent(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))
	assert.Contains(t, err.Error(), "attendees[0] must be an email address")
}

func TestService_FindOpenSlots(t *testing.T) {
	cal := &fakeCalendar{}
	cal.book(calendar.TimeRange{
		Start: time.Date(2025, 3, 11, 10, 0, 0, 0, ist),
		End:   time.Date(2025, 3, 11, 11, 0, 0, 0, ist),
	})
	svc := newTestService(cal, nil)

	resp, err := svc.FindOpenSlots(context.Background(), FindOpenSlotsRequest{Date: "2025-03-11", DurationMinutes: 60})
	require.NoError(t, err)
	assert.Len(t, resp.OpenSlots, 9)

	_, err = svc.FindOpenSlots(context.Background(), FindOpenSlotsRequest{Date: "2025-03-11"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration_minutes is required")
}

func TestService_Book_AuditAndSessions(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), instrumentation.AuditLoggingConfig{Enabled: true})

	cal := &fakeCalendar{}
	var gotAccount string
	svc := NewService(ServiceConfig{
		Sessions: func(_ context.Context, account string) (Calendar, error) {
			gotAccount = account
			return cal, nil
		},
		Parser: testParser(),
		Audit:  audit,
	})

	ctx := WithChannel(context.Background(), ChannelChat)
	res, err := svc.Book(ctx, BookRequest{UserEmail: "alice@example.com", UserInput: "tomorrow at 3 PM"})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "alice@example.com", gotAccount)

	out := buf.String()
	assert.Contains(t, out, "booking_created")
	assert.Contains(t, out, "channel=chat")
	assert.Contains(t, out, "outcome=booked")
	assert.NotContains(t, out, "alice@example.com")

	buf.Reset()
	_, err = svc.Book(ctx, BookRequest{UserInput: "tomorrow at 3 PM"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "outcome=slot_conflict")
}

func TestService_SessionError(t *testing.T) {
	svc := NewService(ServiceConfig{
		Sessions: func(context.Context, string) (Calendar, error) {
			return nil, apperror.InvalidInput("calendar account bob@example.com is not connected")
		},
		Parser: testParser(),
	})

	_, err := svc.Book(context.Background(), BookRequest{UserEmail: "bob@example.com", UserInput: "tomorrow at 3 PM"})
	assert.True(t, apperror.Is(err, apperror.KindInvalidInput))

	svc = NewService(ServiceConfig{
		Sessions: func(context.Context, string) (Calendar, error) {
			return nil, apperror.Upstream(errors.New("bad key"), "failed to load service account credentials")
		},
		Parser: testParser(),
	})
	_, err = svc.FindOpenSlots(context.Background(), FindOpenSlotsRequest{Date: "2025-03-11", DurationMinutes: 30})
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
}

func TestChannelFromContext(t *testing.T) {
	assert.Equal(t, ChannelAPI, ChannelFromContext(context.Background()))
	assert.Equal(t, ChannelMCP, ChannelFromContext(WithChannel(context.Background(), ChannelMCP)))
}

func TestValidator_Account(t *testing.T) {
	v := NewValidator()
	for _, ok := range []string{"", "default", "alice@example.com"} {
		assert.NoError(t, validateRequest(v, BookRequest{UserEmail: ok, UserInput: "x"}), ok)
	}
	assert.Error(t, validateRequest(v, BookRequest{UserEmail: "alice", UserInput: "x"}))
}

// TestService_RealClient runs the free-text pipeline against the fake
// Calendar REST API through the real client.
func TestService_RealClient(t *testing.T) {
	srv := calendartest.NewServer()
	defer srv.Close()

	client, err := calendar.NewClient(context.Background(), calendar.ClientConfig{
		CalendarID: "primary",
		Location:   ist,
	}, srv.Options()...)
	require.NoError(t, err)

	svc := newTestService(client, nil)
	ctx := context.Background()

	res, err := svc.Book(ctx, BookRequest{UserInput: "Schedule a call tomorrow at 3 PM"})
	require.NoError(t, err)
	assert.Contains(t, res.CalendarLink, "https://calendar.example.com/event")

	in := srv.Inserts()[0]
	assert.Equal(t, "CalMate Booking", in.Event.Summary)
	assert.Equal(t, "2025-03-11T15:00:00+05:30", in.Event.Start.DateTime)
	assert.Equal(t, "2025-03-11T15:30:00+05:30", in.Event.End.DateTime)

	avail, err := svc.CheckAvailability(ctx, CheckAvailabilityRequest{
		StartTime: "2025-03-11T15:00:00+05:30",
		EndTime:   "2025-03-11T15:30:00+05:30",
	})
	require.NoError(t, err)
	assert.False(t, avail.Available)
}
