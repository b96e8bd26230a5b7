package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no token is stored for an account.
var ErrNoToken = errors.New("no Google OAuth token stored for account")

// TokenProvider is an interface for providing OAuth tokens for Google APIs
// This abstraction allows different token sources (file-based, in-memory, etc.)
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// TokenSaver persists tokens, typically after the consent flow or a refresh.
type TokenSaver interface {
	SaveToken(account string, token *oauth2.Token) error
}

// TokenStore is a TokenProvider that can also persist tokens.
type TokenStore interface {
	TokenProvider
	TokenSaver
}

// FileTokenStore stores one JSON token per account email under a directory.
type FileTokenStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileTokenStore creates a store rooted at dir. The directory is created
// on the first write.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

var accountPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+$`)

// validateAccount accepts email addresses only; anything else could escape dir.
func validateAccount(account string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if !accountPattern.MatchString(account) || strings.Contains(account, "..") {
		return fmt.Errorf("invalid account %q: must be an email address", account)
	}
	return nil
}

func (s *FileTokenStore) path(account string) string {
	return filepath.Join(s.dir, strings.ToLower(account)+".json")
}

// GetTokenForAccount loads the stored token for account.
func (s *FileTokenStore) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccount(account); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return &token, nil
}

// HasTokenForAccount checks if a token file exists for the specified account
func (s *FileTokenStore) HasTokenForAccount(account string) bool {
	if validateAccount(account) != nil {
		return false
	}
	_, err := os.Stat(s.path(account))
	return err == nil
}

// SaveToken writes the token for account with owner-only permissions.
func (s *FileTokenStore) SaveToken(account string, token *oauth2.Token) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated token.
	tmp := s.path(account) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path(account)); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Accounts lists the emails with a stored token, sorted. A missing
// directory means no account is connected.
func (s *FileTokenStore) Accounts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list token directory: %w", err)
	}

	var accounts []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		account := strings.TrimSuffix(name, ".json")
		if validateAccount(account) == nil {
			accounts = append(accounts, account)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// savingTokenSource writes refreshed tokens back to the store.
type savingTokenSource struct {
	account string
	base    oauth2.TokenSource
	saver   TokenSaver

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := s.saver.SaveToken(s.account, token); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
		s.last = token.AccessToken
	}
	return token, nil
}

// TokenSourceForAccount returns a refreshing token source for a stored
// account token. Refreshed tokens are written back when the provider can
// save them.
func TokenSourceForAccount(ctx context.Context, conf *oauth2.Config, provider TokenProvider, account string) (oauth2.TokenSource, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	ts := conf.TokenSource(ctx, token)
	if saver, ok := provider.(TokenSaver); ok {
		ts = &savingTokenSource{
			account: account,
			base:    ts,
			saver:   saver,
			last:    token.AccessToken,
		}
	}
	return oauth2.ReuseTokenSource(token, ts), nil
}
