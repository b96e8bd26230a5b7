package google

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ServiceAccountHTTPClient returns an HTTP client authorised with the
// service-account key in keyFile.
func ServiceAccountHTTPClient(ctx context.Context, keyFile string, scopes ...string) (*http.Client, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}
	return ServiceAccountHTTPClientFromJSON(ctx, data, scopes...)
}

// ServiceAccountHTTPClientFromJSON is ServiceAccountHTTPClient for key material
// already in memory.
func ServiceAccountHTTPClientFromJSON(ctx context.Context, data []byte, scopes ...string) (*http.Client, error) {
	if len(scopes) == 0 {
		scopes = ServiceAccountScopes
	}

	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
