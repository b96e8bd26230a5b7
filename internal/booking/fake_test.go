package booking

import (
	"context"
	"fmt"
	"sync"

	"github.com/teemow/calmate/internal/calendar"
)

// fakeCalendar is an in-memory Calendar with read-after-write consistency.
type fakeCalendar struct {
	mu        sync.Mutex
	events    []calendar.EventInput
	checks    []calendar.TimeRange
	checkErr  error
	createErr error
	inFlight  int
	maxFlight int
}

func (f *fakeCalendar) IsAvailable(_ context.Context, r calendar.TimeRange) (bool, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.checks = append(f.checks, r)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.checkErr != nil {
		return false, f.checkErr
	}
	for _, ev := range f.events {
		if ev.Range.Overlaps(r) {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, input calendar.EventInput) (*calendar.EventSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	f.events = append(f.events, input)
	id := len(f.events)
	summary := &calendar.EventSummary{
		ID:       fmt.Sprintf("evt-%d", id),
		Summary:  input.Summary,
		Start:    input.Range.Start,
		End:      input.Range.End,
		HTMLLink: fmt.Sprintf("https://calendar.example.com/event?eid=evt-%d", id),
	}
	if len(input.Attendees) > 0 {
		summary.MeetLink = fmt.Sprintf("https://meet.example.com/evt-%d", id)
	}
	return summary, nil
}

func (f *fakeCalendar) book(r calendar.TimeRange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, calendar.EventInput{Summary: "seed", Range: r})
}

func (f *fakeCalendar) created() []calendar.EventInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]calendar.EventInput(nil), f.events...)
}

func sessionsFor(cal Calendar) SessionFunc {
	return func(context.Context, string) (Calendar, error) { return cal, nil }
}
