package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
)

// DefaultAccount selects the service-account session.
const DefaultAccount = "default"

// UserCalendarID is the calendar used for per-user sessions.
const UserCalendarID = "primary"

// IsDefaultAccount reports whether account selects the service-account session.
func IsDefaultAccount(account string) bool {
	a := strings.TrimSpace(account)
	return a == "" || a == DefaultAccount
}

// SessionConfig holds what the factory needs to authorise calendar clients.
type SessionConfig struct {
	// Location is the target zone handed to every client
	Location *time.Location

	// ServiceAccountFile is the key file for the default session
	ServiceAccountFile string

	// ServiceCalendarID is the calendar used by the default session
	ServiceCalendarID string

	// OAuthConfig refreshes per-user tokens
	OAuthConfig *oauth2.Config

	// Tokens provides per-user tokens keyed by email
	Tokens google.TokenProvider

	// Metrics is passed on to every client. Optional.
	Metrics *instrumentation.Metrics

	// ClientOptions are appended to the Calendar service options
	ClientOptions []option.ClientOption
}

// SessionFactory resolves an account to an authorised calendar Client.
// A new session is built for every call; credentials are never shared
// between requests.
type SessionFactory struct {
	cfg SessionConfig

	// serviceHTTPClient builds the default session's HTTP client. Replaced in tests.
	serviceHTTPClient func(ctx context.Context) (*http.Client, error)
}

// NewSessionFactory creates a SessionFactory.
func NewSessionFactory(cfg SessionConfig) *SessionFactory {
	f := &SessionFactory{cfg: cfg}
	f.serviceHTTPClient = func(ctx context.Context) (*http.Client, error) {
		return google.ServiceAccountHTTPClient(ctx, f.cfg.ServiceAccountFile, google.ServiceAccountScopes...)
	}
	return f
}

// ForAccount returns a client for account: the service account for the empty
// or "default" account, otherwise the stored token of that email.
//
// A missing user token is an InvalidInput error (the user has to connect the
// account first). Credential and transport problems are upstream failures.
func (f *SessionFactory) ForAccount(ctx context.Context, account string) (*Client, error) {
	var (
		httpClient *http.Client
		calendarID string
		err        error
	)

	if IsDefaultAccount(account) {
		httpClient, err = f.serviceHTTPClient(ctx)
		if err != nil {
			return nil, apperror.Upstream(err, "failed to load service account credentials")
		}
		calendarID = f.cfg.ServiceCalendarID
	} else {
		if f.cfg.Tokens == nil || f.cfg.OAuthConfig == nil {
			return nil, apperror.Upstream(errors.New("per-user OAuth is not configured"), "failed to open calendar session")
		}

		ts, err := google.TokenSourceForAccount(ctx, f.cfg.OAuthConfig, f.cfg.Tokens, account)
		if err != nil {
			if errors.Is(err, google.ErrNoToken) {
				return nil, apperror.InvalidInput("calendar account %s is not connected; authorize it via /auth/google first", account)
			}
			return nil, apperror.Upstream(err, "failed to load user token")
		}
		httpClient = oauth2.NewClient(ctx, ts)
		calendarID = UserCalendarID
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, f.cfg.ClientOptions...)
	client, err := NewClient(ctx, ClientConfig{
		CalendarID: calendarID,
		Location:   f.cfg.Location,
		Metrics:    f.cfg.Metrics,
	}, opts...)
	if err != nil {
		return nil, apperror.Upstream(err, fmt.Sprintf("failed to open calendar session for %s", calendarID))
	}
	return client, nil
}
