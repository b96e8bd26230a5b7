package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "Asia/Kolkata", cfg.TimeZone.String())
	assert.Equal(t, 30*time.Minute, cfg.BookingDuration)
	assert.Equal(t, 9, cfg.SlotWindowStartHour)
	assert.Equal(t, 19, cfg.SlotWindowEndHour)
	assert.Equal(t, 1, cfg.SlotCheckConcurrency)
	assert.Equal(t, "am", cfg.AmbiguousTimeDefault)
	assert.True(t, cfg.AmbiguousTimeTodayAware)
	assert.Equal(t, DefaultBookingSummary, cfg.BookingSummary)
	assert.Equal(t, DefaultLLMBaseURL, cfg.LLMBaseURL)
	assert.Equal(t, "http://localhost:8000/auth/google/callback", cfg.OAuthRedirectURL())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TIME_ZONE", "UTC")
	t.Setenv("BOOKING_DURATION_MINUTES", "45")
	t.Setenv("SLOT_CHECK_CONCURRENCY", "4")
	t.Setenv("AMBIGUOUS_TIME_DEFAULT", "PM")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.TimeZone)
	assert.Equal(t, 45*time.Minute, cfg.BookingDuration)
	assert.Equal(t, 4, cfg.SlotCheckConcurrency)
	assert.Equal(t, "pm", cfg.AmbiguousTimeDefault)
	assert.Equal(t, "sk-or-test", cfg.LLMAPIKey)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown zone", key: "TIME_ZONE", value: "Mars/Olympus"},
		{name: "bad meridiem", key: "AMBIGUOUS_TIME_DEFAULT", value: "noon"},
		{name: "non-numeric duration", key: "BOOKING_DURATION_MINUTES", value: "half"},
		{name: "inverted window", key: "SLOT_WINDOW_START_HOUR", value: "20"},
		{name: "zero concurrency", key: "SLOT_CHECK_CONCURRENCY", value: "0"},
		{name: "short cookie key", key: "COOKIE_HASH_KEY", value: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
