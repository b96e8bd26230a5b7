package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
	"github.com/teemow/calmate/internal/timeparse"
)

// Channels recorded in metrics and the audit trail.
const (
	ChannelAPI  = "api"
	ChannelChat = "chat"
	ChannelMCP  = "mcp"
)

type channelKey struct{}

// WithChannel tags ctx with the entry point of a request.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

// ChannelFromContext returns the entry point of a request, ChannelAPI by default.
func ChannelFromContext(ctx context.Context) string {
	if ch, ok := ctx.Value(channelKey{}).(string); ok && ch != "" {
		return ch
	}
	return ChannelAPI
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Sessions SessionFunc
	Parser   *timeparse.Parser
	Workflow *Workflow
	Slots    *SlotFinder

	// Optional
	Validator *validator.Validate
	Metrics   *instrumentation.Metrics
	Audit     *instrumentation.AuditLogger
	Logger    *slog.Logger
}

// Service exposes the scheduling operations behind validated request schemas.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	sessions SessionFunc
	parser   *timeparse.Parser
	workflow *Workflow
	slots    *SlotFinder
	validate *validator.Validate
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workflow == nil {
		cfg.Workflow = NewWorkflow(cfg.Parser)
	}
	if cfg.Slots == nil {
		cfg.Slots = NewSlotFinder(SlotFinderConfig{Location: cfg.Parser.Location()})
	}
	return &Service{
		sessions: cfg.Sessions,
		parser:   cfg.Parser,
		workflow: cfg.Workflow,
		slots:    cfg.Slots,
		validate: cfg.Validator,
		metrics:  cfg.Metrics,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
	}
}

// Parser returns the time parser used by the service.
func (s *Service) Parser() *timeparse.Parser {
	return s.parser
}

// CheckAvailability reports whether [start_time, end_time) is free.
func (s *Service) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*AvailabilityResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	slot, err := s.parseRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	cal, err := s.sessions(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}

	free, err := cal.IsAvailable(ctx, slot)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to check availability")
	}

	s.logger.Debug("availability checked",
		logging.Operation("booking.check_availability"),
		logging.Account(req.UserEmail),
		slog.Bool("available", free))

	return &AvailabilityResponse{Available: free}, nil
}

// BookEvent creates an event with explicit fields. The range is checked
// first; an occupied range is a SlotConflict.
func (s *Service) BookEvent(ctx context.Context, req BookEventRequest) (resp *BookEventResponse, err error) {
	record := instrumentation.NewBookingRecord(ChannelFromContext(ctx), req.UserEmail).
		WithAttendees(len(req.Attendees)).
		WithSpanContext(ctx)
	defer func() {
		link := ""
		if resp != nil {
			link = resp.CalendarLink
		}
		s.finish(ctx, record, link, err)
	}()

	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	slot, err := s.parseRange(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	record.WithSlot(slot.Start, slot.End)

	cal, err := s.sessions(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}

	free, err := cal.IsAvailable(ctx, slot)
	if err != nil {
		return nil, apperror.Upstream(err, "failed to check availability")
	}
	if !free {
		return nil, apperror.SlotConflict("the slot %s is already booked", slot.Start.Format(timeparse.Layout))
	}

	event, err := cal.CreateEvent(ctx, calendar.EventInput{
		Summary:   req.Summary,
		Range:     slot,
		Attendees: req.Attendees,
	})
	if err != nil {
		return nil, apperror.Upstream(err, "failed to create event")
	}

	return &BookEventResponse{CalendarLink: event.HTMLLink, MeetLink: event.MeetLink}, nil
}

// FindOpenSlots lists the free slots of the requested day.
func (s *Service) FindOpenSlots(ctx context.Context, req FindOpenSlotsRequest) (*OpenSlotsResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	day, err := s.parser.Parse(req.Date)
	if err != nil {
		return nil, err
	}

	cal, err := s.sessions(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.FindOpenSlots(ctx, cal, day, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("open slots found",
		logging.Operation("booking.find_open_slots"),
		logging.Account(req.UserEmail),
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("count", len(slots)))

	return &OpenSlotsResponse{OpenSlots: slots}, nil
}

// Book runs the free-text Workflow.
func (s *Service) Book(ctx context.Context, req BookRequest) (result *BookingResult, err error) {
	record := instrumentation.NewBookingRecord(ChannelFromContext(ctx), req.UserEmail).WithSpanContext(ctx)
	defer func() {
		link := ""
		if result != nil {
			link = result.CalendarLink
			record.WithSlot(result.Slot.Start, result.Slot.End)
		}
		s.finish(ctx, record, link, err)
	}()

	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	cal, err := s.sessions(ctx, req.UserEmail)
	if err != nil {
		return nil, err
	}

	return s.workflow.Book(ctx, cal, req.UserInput)
}

// parseRange parses loosely-typed start/end strings into a validated range.
func (s *Service) parseRange(startText, endText string) (calendar.TimeRange, error) {
	start, err := s.parser.Parse(startText)
	if err != nil {
		return calendar.TimeRange{}, err
	}
	end, err := s.parser.Parse(endText)
	if err != nil {
		return calendar.TimeRange{}, err
	}
	return calendar.NewTimeRange(start, end, s.parser.Location())
}

// finish records metrics and the audit entry for a booking attempt.
func (s *Service) finish(ctx context.Context, record *instrumentation.BookingRecord, link string, err error) {
	outcome := instrumentation.OutcomeBooked
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	record.Complete(outcome, link, err)

	s.metrics.RecordBooking(ctx, outcome, record.Account)
	s.audit.LogBooking(record)

	if err != nil && apperror.KindOf(err) == apperror.KindUpstream {
		s.logger.Error("booking failed",
			logging.Account(record.Account),
			slog.String("channel", record.Channel),
			logging.Err(err))
	}
}
