// Package config loads the CalMate configuration from an optional .env file
// and the process environment.
//
// All settings have defaults that reproduce the original service: Asia/Kolkata
// as the target zone, 30 minute bookings, a 09:00-19:00 slot window and an
// OpenRouter-hosted model.
package config
