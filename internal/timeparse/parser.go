package timeparse

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/teemow/calmate/internal/apperror"
)

const (
	// Layout is the deterministic output format of Extract.
	Layout = "2006-01-02 at 03:04 PM"

	// Unknown is returned by Extract when no date/time was found.
	Unknown = "unknown"
)

// cleanedLayout is Layout after the booking pipeline strips the word "at".
const cleanedLayout = "2006-01-02 03:04 PM"

var (
	// todayWord matches "today" as a word of its own, not "todayish" or "today's".
	todayWord = regexp.MustCompile(`(?i)(?:^|[^\w'])today(?:$|[^\w'])`)

	// explicitYear gates the machine-format parser; without a year dateparse
	// would pin the current one and skip the prefer-future rule.
	explicitYear = regexp.MustCompile(`\d{4}`)
)

// rollForward lists the references a past match is searched again from, in
// order: an omitted day, an omitted weekday, an omitted year.
var rollForward = []func(time.Time) time.Time{
	func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
	func(t time.Time) time.Time { return t.AddDate(0, 0, 7) },
	func(t time.Time) time.Time { return t.AddDate(1, 0, 0) },
}

// Meridiem is the suffix appended to text that carries no am/pm marker.
type Meridiem string

const (
	AM Meridiem = "AM"
	PM Meridiem = "PM"
)

// ParseMeridiem maps "am"/"pm" (any case) to a Meridiem, defaulting to AM.
func ParseMeridiem(s string) Meridiem {
	if strings.EqualFold(strings.TrimSpace(s), "pm") {
		return PM
	}
	return AM
}

// MeridiemPolicy decides which suffix is appended to ambiguous text.
//
// With TodayAware set, text mentioning "today" gets PM when the current hour
// in the target zone is 12 or later and AM otherwise. Everything else gets
// Default. The zero value always appends AM.
type MeridiemPolicy struct {
	Default    Meridiem
	TodayAware bool
}

// DefaultPolicy is the AM-by-default, today-aware policy.
var DefaultPolicy = MeridiemPolicy{Default: AM, TodayAware: true}

// Extracted is the result of Extract.
type Extracted struct {
	// Time is the match in the target zone. Zero when nothing matched.
	Time time.Time
	// Text is Time formatted with Layout, or Unknown.
	Text string
}

// Unknown reports whether nothing could be extracted.
func (e Extracted) Unknown() bool {
	return e.Text == Unknown
}

func (e Extracted) String() string {
	return e.Text
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock replaces time.Now as the reference instant.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithPolicy sets the AM/PM disambiguation policy.
func WithPolicy(policy MeridiemPolicy) Option {
	return func(p *Parser) {
		p.policy = policy
	}
}

// Parser extracts and parses timestamps relative to a target time zone.
// It is safe for concurrent use.
type Parser struct {
	loc    *time.Location
	now    func() time.Time
	policy MeridiemPolicy
	search *when.Parser
}

// New creates a Parser normalising every result to loc.
func New(loc *time.Location, opts ...Option) *Parser {
	if loc == nil {
		loc = time.UTC
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	p := &Parser{
		loc:    loc,
		now:    time.Now,
		policy: DefaultPolicy,
		search: w,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.policy.Default == "" {
		p.policy.Default = AM
	}
	return p
}

// Location returns the target zone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Extract finds the first date/time expression in text.
// It never fails; when nothing matches the result is the Unknown sentinel.
func (p *Parser) Extract(text string) Extracted {
	now := p.now().In(p.loc)

	t, ok := p.searchText(p.disambiguate(text, now), now)
	if !ok {
		return Extracted{Text: Unknown}
	}
	return Extracted{Time: t, Text: t.Format(Layout)}
}

// Parse converts a loosely-typed date string to a time in the target zone.
// It accepts Extract's output (with or without the word "at"), machine
// formats such as RFC3339 and natural language such as "tomorrow 3pm".
func (p *Parser) Parse(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, apperror.InvalidInput("empty date/time")
	}

	for _, layout := range []string{Layout, cleanedLayout} {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}

	if explicitYear.MatchString(s) {
		if t, err := dateparse.ParseIn(s, p.loc); err == nil {
			return t.In(p.loc), nil
		}
	}

	if t, ok := p.searchText(s, p.now().In(p.loc)); ok {
		return t, nil
	}

	return time.Time{}, apperror.InvalidInput("could not parse date/time %q", text)
}

// disambiguate appends an AM/PM suffix to text that has no marker.
// The marker test is a plain substring match, so words such as "Amsterdam"
// count as carrying one.
func (p *Parser) disambiguate(text string, now time.Time) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "am") || strings.Contains(lower, "pm") {
		return text
	}

	suffix := p.policy.Default
	if p.policy.TodayAware && mentionsToday(text) {
		if now.Hour() >= 12 {
			suffix = PM
		} else {
			suffix = AM
		}
	}
	return text + " " + string(suffix)
}

// searchText runs the natural-language search and applies the prefer-future
// rule: a match in the past is searched again from a reference one day, one
// week and then one year later, and the first result not before now wins.
// Text pinned to today and text whose every reading lies in the past keep the
// first match.
func (p *Parser) searchText(text string, now time.Time) (time.Time, bool) {
	t, ok := p.searchFrom(text, now)
	if !ok {
		return time.Time{}, false
	}
	if !t.Before(now) || mentionsToday(text) {
		return t, true
	}

	for _, shift := range rollForward {
		if later, ok := p.searchFrom(text, shift(now)); ok && !later.Before(now) {
			return later, true
		}
	}
	return t, true
}

func (p *Parser) searchFrom(text string, ref time.Time) (time.Time, bool) {
	r, err := p.search.Parse(text, ref)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time.In(p.loc), true
}

func mentionsToday(text string) bool {
	return todayWord.MatchString(text)
}
