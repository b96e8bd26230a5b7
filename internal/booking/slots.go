package booking

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar"
)

// Business hours searched by the SlotFinder.
const (
	DefaultWindowStartHour = 9
	DefaultWindowEndHour   = 19
)

// SlotFinderConfig configures a SlotFinder.
type SlotFinderConfig struct {
	// Location defines the business day
	Location *time.Location

	// WindowStartHour and WindowEndHour bound the candidate start hours:
	// candidates start at every full hour h with start <= h < end.
	WindowStartHour int
	WindowEndHour   int

	// Concurrency is the number of availability checks in flight (default 1)
	Concurrency int
}

// SlotFinder lists free slots of a day. It issues one availability call per
// candidate hour; there is no batching.
type SlotFinder struct {
	loc         *time.Location
	startHour   int
	endHour     int
	concurrency int
}

// NewSlotFinder creates a SlotFinder, applying defaults for zero fields.
func NewSlotFinder(cfg SlotFinderConfig) *SlotFinder {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WindowStartHour == 0 && cfg.WindowEndHour == 0 {
		cfg.WindowStartHour, cfg.WindowEndHour = DefaultWindowStartHour, DefaultWindowEndHour
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &SlotFinder{
		loc:         cfg.Location,
		startHour:   cfg.WindowStartHour,
		endHour:     cfg.WindowEndHour,
		concurrency: cfg.Concurrency,
	}
}

// Candidates returns the candidate ranges of day in ascending order.
func (f *SlotFinder) Candidates(day time.Time, duration time.Duration) []calendar.TimeRange {
	d := day.In(f.loc)
	var out []calendar.TimeRange
	for h := f.startHour; h < f.endHour; h++ {
		start := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, f.loc)
		out = append(out, calendar.TimeRange{Start: start, End: start.Add(duration)})
	}
	return out
}

// FindOpenSlots returns the candidates of day that cal reports as free,
// ascending by start time. The result is empty, never nil, when nothing is free.
// The first failing check aborts the search.
func (f *SlotFinder) FindOpenSlots(ctx context.Context, cal Calendar, day time.Time, duration time.Duration) ([]calendar.TimeRange, error) {
	if duration <= 0 {
		return nil, apperror.InvalidInput("duration must be positive")
	}

	candidates := f.Candidates(day, duration)
	free := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			ok, err := cal.IsAvailable(gctx, c)
			if err != nil {
				return err
			}
			free[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperror.Upstream(err, "failed to check availability")
	}

	open := make([]calendar.TimeRange, 0, len(candidates))
	for i, c := range candidates {
		if free[i] {
			open = append(open, c)
		}
	}
	return open, nil
}
