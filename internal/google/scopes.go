package google

import (
	calendar "google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
)

// DefaultOAuthScopes are the scopes requested during the consent flow.
//
// The scopes provide access to:
//   - the account email (to key the stored token)
//   - Google Calendar: full access, needed to create events with Meet links
var DefaultOAuthScopes = []string{
	"openid",
	oauth2api.UserinfoEmailScope,
	calendar.CalendarScope,
}

// ServiceAccountScopes are the scopes requested for service-account credentials.
var ServiceAccountScopes = []string{
	calendar.CalendarScope,
}
