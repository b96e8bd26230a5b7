package calendar

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar/calendartest"
	"github.com/teemow/calmate/internal/google"
)

type staticTokens map[string]*oauth2.Token

func (s staticTokens) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	tok, ok := s[account]
	if !ok {
		return nil, google.ErrNoToken
	}
	return tok, nil
}

func (s staticTokens) HasTokenForAccount(account string) bool {
	_, ok := s[account]
	return ok
}

func TestIsDefaultAccount(t *testing.T) {
	assert.True(t, IsDefaultAccount(""))
	assert.True(t, IsDefaultAccount("default"))
	assert.True(t, IsDefaultAccount("  "))
	assert.False(t, IsDefaultAccount("alice@example.com"))
}

func TestSessionFactory_UserAccount(t *testing.T) {
	srv := calendartest.NewServer()
	defer srv.Close()

	f := NewSessionFactory(SessionConfig{
		Location:    ist,
		OAuthConfig: &oauth2.Config{},
		Tokens: staticTokens{
			"alice@example.com": {AccessToken: "tok", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)},
		},
		ClientOptions: []option.ClientOption{srv.EndpointOption()},
	})

	c, err := f.ForAccount(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, UserCalendarID, c.CalendarID())

	_, err = c.IsAvailable(context.Background(), TimeRange{
		Start: time.Date(2025, 3, 11, 9, 0, 0, 0, ist),
		End:   time.Date(2025, 3, 11, 10, 0, 0, 0, ist),
	})
	require.NoError(t, err)
	assert.Len(t, srv.Lists(), 1)
}

func TestSessionFactory_UnknownUser(t *testing.T) {
	f := NewSessionFactory(SessionConfig{
		Location:    ist,
		OAuthConfig: &oauth2.Config{},
		Tokens:      staticTokens{},
	})

	_, err := f.ForAccount(context.Background(), "bob@example.com")
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))
}

func TestSessionFactory_UserOAuthNotConfigured(t *testing.T) {
	_, err := NewSessionFactory(SessionConfig{}).ForAccount(context.Background(), "bob@example.com")
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestSessionFactory_DefaultAccount(t *testing.T) {
	srv := calendartest.NewServer()
	defer srv.Close()

	f := NewSessionFactory(SessionConfig{
		Location:          ist,
		ServiceCalendarID: "team@group.calendar.google.com",
		ClientOptions:     []option.ClientOption{srv.EndpointOption()},
	})
	f.serviceHTTPClient = func(context.Context) (*http.Client, error) {
		return srv.Client(), nil
	}

	c, err := f.ForAccount(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "team@group.calendar.google.com", c.CalendarID())
}

func TestSessionFactory_BadServiceAccount(t *testing.T) {
	f := NewSessionFactory(SessionConfig{ServiceAccountFile: "/nonexistent/credentials.json"})

	_, err := f.ForAccount(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	f.serviceHTTPClient = func(context.Context) (*http.Client, error) {
		return nil, errors.New("boom")
	}
	_, err = f.ForAccount(context.Background(), "default")
	assert.Contains(t, err.Error(), "boom")
}
