// Package calendar provides a client for the Google Calendar API scoped to a
// single calendar, and a SessionFactory that authorises clients either with
// the service account or with a user's stored OAuth token.
//
// The client exposes exactly what the booking pipeline needs: listing events
// in a window, a free/occupied check built on that listing, and event
// creation with optional Google Meet conferencing and reminders.
//
// Example usage:
//
//	sessions := calendar.NewSessionFactory(calendar.SessionConfig{
//	    Location:           ist,
//	    ServiceAccountFile: "credentials.json",
//	    ServiceCalendarID:  "team@group.calendar.google.com",
//	})
//	client, err := sessions.ForAccount(ctx, "default")
//	if err != nil {
//	    return err
//	}
//	free, err := client.IsAvailable(ctx, slot)
package calendar
