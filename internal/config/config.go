package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the booking policy and the LLM endpoint.
const (
	DefaultTimeZone       = "Asia/Kolkata"
	DefaultLLMBaseURL     = "https://openrouter.ai/api/v1"
	DefaultLLMModel       = "openai/gpt-3.5-turbo-0613"
	DefaultLLMTitle       = "CalMate"
	DefaultBookingSummary = "CalMate Booking"
)

// Config holds the runtime configuration of the service.
// It is loaded once at startup and passed to constructors explicitly.
type Config struct {
	// ListenAddr is the address of the HTTP API (e.g., ":8000")
	ListenAddr string

	// BaseURL is the public URL of the API, used to build the OAuth redirect URL
	BaseURL string

	// FrontendURL receives the user after the OAuth callback (?user=<email>)
	FrontendURL string

	// TimeZone is the single zone every extracted and stored time is normalised to
	TimeZone *time.Location

	// CalendarID is the calendar used with service-account credentials
	CalendarID string

	// Google credentials
	ServiceAccountFile string
	ClientSecretsFile  string
	TokensDir          string

	// CookieHashKey signs the OAuth state cookie. Generated at startup when empty.
	CookieHashKey []byte

	// Ambiguous time policy (see timeparse.MeridiemPolicy)
	AmbiguousTimeDefault    string
	AmbiguousTimeTodayAware bool

	// Booking policy
	BookingSummary  string
	BookingDuration time.Duration

	// Slot finder
	SlotWindowStartHour  int
	SlotWindowEndHour    int
	SlotCheckConcurrency int

	// LLM endpoint (any OpenAI-compatible chat completion API)
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMReferer string
	LLMTitle   string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:              getEnvOrDefault("LISTEN_ADDR", ":8000"),
		BaseURL:                 getEnvOrDefault("BASE_URL", "http://localhost:8000"),
		FrontendURL:             getEnvOrDefault("FRONTEND_URL", "http://localhost:8501/"),
		CalendarID:              getEnvOrDefault("CALENDAR_ID", "primary"),
		ServiceAccountFile:      getEnvOrDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "credentials.json"),
		ClientSecretsFile:       getEnvOrDefault("GOOGLE_CLIENT_SECRETS_FILE", "client_secret.json"),
		TokensDir:               getEnvOrDefault("TOKENS_DIR", "tokens"),
		AmbiguousTimeDefault:    strings.ToLower(getEnvOrDefault("AMBIGUOUS_TIME_DEFAULT", "am")),
		AmbiguousTimeTodayAware: getEnvBoolOrDefault("AMBIGUOUS_TIME_TODAY_AWARE", true),
		BookingSummary:          getEnvOrDefault("BOOKING_SUMMARY", DefaultBookingSummary),
		LLMBaseURL:              getEnvOrDefault("LLM_BASE_URL", DefaultLLMBaseURL),
		LLMAPIKey:               getEnvOrDefault("LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY")),
		LLMModel:                getEnvOrDefault("LLM_MODEL", DefaultLLMModel),
		LLMReferer:              getEnvOrDefault("LLM_HTTP_REFERER", "http://localhost:8501"),
		LLMTitle:                getEnvOrDefault("LLM_TITLE", DefaultLLMTitle),
		LogLevel:                getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               getEnvOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	tzName := getEnvOrDefault("TIME_ZONE", DefaultTimeZone)
	cfg.TimeZone, err = time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIME_ZONE %q: %w", tzName, err)
	}

	if cfg.BookingDuration, err = getEnvMinutes("BOOKING_DURATION_MINUTES", 30); err != nil {
		return Config{}, err
	}
	if cfg.SlotWindowStartHour, err = getEnvInt("SLOT_WINDOW_START_HOUR", 9); err != nil {
		return Config{}, err
	}
	if cfg.SlotWindowEndHour, err = getEnvInt("SLOT_WINDOW_END_HOUR", 19); err != nil {
		return Config{}, err
	}
	if cfg.SlotCheckConcurrency, err = getEnvInt("SLOT_CHECK_CONCURRENCY", 1); err != nil {
		return Config{}, err
	}

	if key := os.Getenv("COOKIE_HASH_KEY"); key != "" {
		cfg.CookieHashKey = []byte(key)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TimeZone == nil {
		return fmt.Errorf("time zone is required")
	}
	if c.AmbiguousTimeDefault != "am" && c.AmbiguousTimeDefault != "pm" {
		return fmt.Errorf("AMBIGUOUS_TIME_DEFAULT must be am or pm, got %q", c.AmbiguousTimeDefault)
	}
	if c.BookingDuration <= 0 {
		return fmt.Errorf("booking duration must be positive")
	}
	if c.SlotWindowStartHour < 0 || c.SlotWindowEndHour > 24 || c.SlotWindowStartHour >= c.SlotWindowEndHour {
		return fmt.Errorf("invalid slot window %d-%d", c.SlotWindowStartHour, c.SlotWindowEndHour)
	}
	if c.SlotCheckConcurrency < 1 {
		return fmt.Errorf("SLOT_CHECK_CONCURRENCY must be at least 1")
	}
	if len(c.CookieHashKey) > 0 && len(c.CookieHashKey) < 32 {
		return fmt.Errorf("COOKIE_HASH_KEY must be at least 32 bytes")
	}
	return nil
}

// OAuthRedirectURL returns the callback URL registered with Google.
func (c *Config) OAuthRedirectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/google/callback"
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the boolean value of an environment variable or a default value.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvMinutes(key string, defaultMinutes int) (time.Duration, error) {
	minutes, err := getEnvInt(key, defaultMinutes)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}
