package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadOAuthConfig reads an OAuth client secrets file (as downloaded from the
// Google Cloud console) and returns a config for the consent flow.
func LoadOAuthConfig(secretsFile, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets file: %w", err)
	}
	return OAuthConfigFromJSON(data, redirectURL, scopes...)
}

// OAuthConfigFromJSON builds the consent-flow config from client secrets JSON.
// When no scopes are given DefaultOAuthScopes is used.
func OAuthConfigFromJSON(data []byte, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	if redirectURL != "" {
		conf.RedirectURL = redirectURL
	}
	return conf, nil
}

// AuthURL returns the consent URL for the given state.
// Offline access is requested so a refresh token is issued.
func AuthURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// ExchangeCode exchanges an authorization code for a token.
func ExchangeCode(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}
