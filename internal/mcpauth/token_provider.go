package mcpauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/giantswarm/mcp-oauth/storage"
	"golang.org/x/oauth2"

	"github.com/teemow/calmate/internal/google"
)

// TokenProvider serves Google tokens obtained through the MCP sign-in and
// falls back to the tokens stored by the consent flow.
type TokenProvider struct {
	store    storage.TokenStore
	fallback google.TokenProvider
}

// NewTokenProvider creates a TokenProvider. fallback may be nil.
func NewTokenProvider(store storage.TokenStore, fallback google.TokenProvider) *TokenProvider {
	return &TokenProvider{store: store, fallback: fallback}
}

// GetTokenForAccount returns the token of account, preferring the MCP sign-in.
func (p *TokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	token, err := p.store.GetToken(ctx, account)
	if err == nil {
		return token, nil
	}
	if !storage.IsNotFoundError(err) && !storage.IsExpiredError(err) {
		return nil, fmt.Errorf("failed to read token for %s: %w", account, err)
	}
	if p.fallback != nil {
		return p.fallback.GetTokenForAccount(ctx, account)
	}
	return nil, fmt.Errorf("%w: %s", google.ErrNoToken, account)
}

// HasTokenForAccount reports whether either source holds a token for account.
func (p *TokenProvider) HasTokenForAccount(account string) bool {
	if _, err := p.store.GetToken(context.Background(), account); err == nil {
		return true
	}
	return p.fallback != nil && p.fallback.HasTokenForAccount(account)
}

// SaveToken writes a refreshed token back to the store it was read from.
func (p *TokenProvider) SaveToken(account string, token *oauth2.Token) error {
	ctx := context.Background()
	if _, err := p.store.GetToken(ctx, account); err == nil {
		return p.store.SaveToken(ctx, account, token)
	}
	if saver, ok := p.fallback.(google.TokenSaver); ok {
		return saver.SaveToken(account, token)
	}
	return errors.New("no token store accepts " + account)
}
