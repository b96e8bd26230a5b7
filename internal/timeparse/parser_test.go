package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calmate/internal/apperror"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDisambiguate(t *testing.T) {
	morning := time.Date(2025, 3, 10, 10, 0, 0, 0, ist)
	evening := time.Date(2025, 3, 10, 18, 0, 0, 0, ist)
	noon := time.Date(2025, 3, 10, 12, 0, 0, 0, ist)

	tests := []struct {
		name   string
		policy MeridiemPolicy
		now    time.Time
		text   string
		want   string
	}{
		{name: "explicit pm untouched", policy: DefaultPolicy, now: morning, text: "tomorrow at 3 PM", want: "tomorrow at 3 PM"},
		{name: "explicit am lowercase untouched", policy: DefaultPolicy, now: evening, text: "today 9am", want: "today 9am"},
		{name: "substring match counts as marker", policy: DefaultPolicy, now: morning, text: "call Sam at 4", want: "call Sam at 4"},
		{name: "today before noon", policy: DefaultPolicy, now: morning, text: "today at 5", want: "today at 5 AM"},
		{name: "today at noon", policy: DefaultPolicy, now: noon, text: "Today at 5", want: "Today at 5 PM"},
		{name: "today in the evening", policy: DefaultPolicy, now: evening, text: "meet today at 7", want: "meet today at 7 PM"},
		{name: "no today defaults to am", policy: DefaultPolicy, now: evening, text: "tomorrow at 7", want: "tomorrow at 7 AM"},
		{name: "configured pm default", policy: MeridiemPolicy{Default: PM, TodayAware: true}, now: morning, text: "tomorrow at 7", want: "tomorrow at 7 PM"},
		{name: "today ignored when not today aware", policy: MeridiemPolicy{Default: AM}, now: evening, text: "today at 7", want: "today at 7 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(ist, WithPolicy(tt.policy))
			assert.Equal(t, tt.want, p.disambiguate(tt.text, tt.now))
		})
	}
}

func TestExtract(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, ist)

	tests := []struct {
		name   string
		policy MeridiemPolicy
		text   string
		want   string
	}{
		{name: "tomorrow afternoon", policy: DefaultPolicy, text: "Schedule a call tomorrow at 3 PM", want: "2025-03-11 at 03:00 PM"},
		{name: "ambiguous hour defaults to am", policy: DefaultPolicy, text: "Schedule a call tomorrow at 3", want: "2025-03-11 at 03:00 AM"},
		{name: "ambiguous hour with pm default", policy: MeridiemPolicy{Default: PM}, text: "Schedule a call tomorrow at 3", want: "2025-03-11 at 03:00 PM"},
		{name: "gibberish", policy: DefaultPolicy, text: "gibberish", want: Unknown},
		{name: "empty", policy: DefaultPolicy, text: "", want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(ist, WithClock(fixedClock(now)), WithPolicy(tt.policy))
			got := p.Extract(tt.text)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.want == Unknown, got.Unknown())
		})
	}
}

func TestExtract_PrefersFuture(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, ist)
	p := New(ist, WithClock(fixedClock(now)))

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "passed hour moves to tomorrow", text: "call at 9 AM", want: "2025-03-13 at 09:00 AM"},
		{name: "upcoming hour stays today", text: "call at 3 PM", want: "2025-03-12 at 03:00 PM"},
		{name: "weekday is upcoming", text: "Monday at 3 PM", want: "2025-03-17 at 03:00 PM"},
		{name: "passed month day moves to next year", text: "Book on March 3 at 3 PM", want: "2026-03-03 at 03:00 PM"},
		{name: "passed ordinal month day moves to next year", text: "Book on 3rd March at 4 PM", want: "2026-03-03 at 04:00 PM"},
		{name: "upcoming month day stays this year", text: "Book on March 20 at 4 PM", want: "2025-03-20 at 04:00 PM"},
		{name: "earlier today is kept", text: "today at 9 AM", want: "2025-03-12 at 09:00 AM"},
		{name: "today inside a word does not pin", text: "todayish standup at 9 AM", want: "2025-03-13 at 09:00 AM"},
		{name: "possessive today does not pin", text: "Today's standup at 9 AM", want: "2025-03-13 at 09:00 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Extract(tt.text)
			require.False(t, got.Unknown())
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestMentionsToday(t *testing.T) {
	assert.True(t, mentionsToday("today"))
	assert.True(t, mentionsToday("Meet TODAY at 5"))
	assert.True(t, mentionsToday("lunch today, 1pm"))
	assert.False(t, mentionsToday("todayish"))
	assert.False(t, mentionsToday("Today's standup tomorrow"))
	assert.False(t, mentionsToday("tomorrow at 5"))
}

func TestExtract_NormalisesZone(t *testing.T) {
	// 04:30 UTC is 10:00 IST; the match must be reported in IST.
	now := time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)
	p := New(ist, WithClock(fixedClock(now)))

	got := p.Extract("tomorrow at 3 PM")
	require.False(t, got.Unknown())
	assert.Equal(t, ist, got.Time.Location())
	assert.Equal(t, "2025-03-11 at 03:00 PM", got.Text)
}

func TestParse(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, ist)
	p := New(ist, WithClock(fixedClock(now)))

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "extractor layout", text: "2025-03-11 at 03:00 PM", want: time.Date(2025, 3, 11, 15, 0, 0, 0, ist)},
		{name: "extractor layout without at", text: "2025-03-11 03:00 PM", want: time.Date(2025, 3, 11, 15, 0, 0, 0, ist)},
		{name: "rfc3339 keeps instant", text: "2025-03-11T09:30:00Z", want: time.Date(2025, 3, 11, 15, 0, 0, 0, ist)},
		{name: "naive iso is target zone", text: "2025-03-11 15:00:00", want: time.Date(2025, 3, 11, 15, 0, 0, 0, ist)},
		{name: "natural language", text: "tomorrow at 4 pm", want: time.Date(2025, 3, 11, 16, 0, 0, 0, ist)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParse_PrefersFuture(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, ist)
	p := New(ist, WithClock(fixedClock(now)))

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{name: "month day", text: "March 3 at 3 PM", want: time.Date(2026, 3, 3, 15, 0, 0, 0, ist)},
		{name: "ordinal month day", text: "3rd March at 4 PM", want: time.Date(2026, 3, 3, 16, 0, 0, 0, ist)},
		{name: "explicit past year is kept", text: "2025-03-03 at 03:00 PM", want: time.Date(2025, 3, 3, 15, 0, 0, 0, ist)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	p := New(ist)

	for _, text := range []string{"", "   ", "gibberish"} {
		_, err := p.Parse(text)
		require.Error(t, err, text)
		assert.True(t, apperror.Is(err, apperror.KindInvalidInput), text)
	}
}

func TestParseMeridiem(t *testing.T) {
	assert.Equal(t, PM, ParseMeridiem("PM"))
	assert.Equal(t, PM, ParseMeridiem(" pm "))
	assert.Equal(t, AM, ParseMeridiem("am"))
	assert.Equal(t, AM, ParseMeridiem("whatever"))
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, WithPolicy(MeridiemPolicy{}))
	assert.Equal(t, time.UTC, p.Location())
	assert.Equal(t, AM, p.policy.Default)
}
