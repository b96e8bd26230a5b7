package server

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
)

const (
	// stateCookieName holds the signed OAuth state between redirect and callback.
	stateCookieName = "calmate_oauth_state"

	// stateCookiePath limits the cookie to the consent flow.
	stateCookiePath = "/auth/google"

	// StateMaxAge is how long a consent attempt stays valid.
	StateMaxAge = 10 * time.Minute
)

// OAuthFlowConfig holds the dependencies of the Google consent flow.
type OAuthFlowConfig struct {
	OAuthConfig *oauth2.Config
	Tokens      google.TokenSaver

	// FrontendURL receives the browser after a successful consent, with the
	// connected account as ?user=. Empty renders JSON instead.
	FrontendURL string

	// HashKey signs the state cookie. A random key is generated when empty,
	// so pending consents do not survive a restart.
	HashKey []byte

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger

	// UserinfoOptions are passed to the userinfo service. Used in tests.
	UserinfoOptions []option.ClientOption
}

// OAuthFlow implements GET /auth/google and its callback: the user consents
// to calendar access and the resulting token is stored under their email.
type OAuthFlow struct {
	conf         *oauth2.Config
	tokens       google.TokenSaver
	frontendURL  string
	cookies      *securecookie.SecureCookie
	secureCookie bool
	metrics      *instrumentation.Metrics
	logger       *slog.Logger
	userinfoOpts []option.ClientOption
}

// NewOAuthFlow creates the consent flow.
func NewOAuthFlow(cfg OAuthFlowConfig) (*OAuthFlow, error) {
	if cfg.OAuthConfig == nil {
		return nil, fmt.Errorf("OAuth client configuration is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if err := validateHTTPSRequirement(cfg.OAuthConfig.RedirectURL); err != nil {
		return nil, fmt.Errorf("invalid OAuth redirect URL: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hashKey := cfg.HashKey
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, fmt.Errorf("failed to generate cookie signing key")
		}
	}
	cookies := securecookie.New(hashKey, nil)
	cookies.MaxAge(int(StateMaxAge.Seconds()))

	redirect, _ := url.Parse(cfg.OAuthConfig.RedirectURL)

	return &OAuthFlow{
		conf:         cfg.OAuthConfig,
		tokens:       cfg.Tokens,
		frontendURL:  cfg.FrontendURL,
		cookies:      cookies,
		secureCookie: redirect != nil && redirect.Scheme == "https",
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		userinfoOpts: cfg.UserinfoOptions,
	}, nil
}

// Register adds the consent endpoints to r.
func (f *OAuthFlow) Register(r gin.IRoutes) {
	r.GET("/auth/google", f.start)
	r.GET("/auth/google/callback", f.callback)
}

func (f *OAuthFlow) start(c *gin.Context) {
	state := uuid.NewString()
	encoded, err := f.cookies.Encode(stateCookieName, state)
	if err != nil {
		f.logger.Error("failed to encode OAuth state", logging.Err(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to start authorization"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, encoded, int(StateMaxAge.Seconds()), stateCookiePath, "", f.secureCookie, true)
	c.Redirect(http.StatusFound, google.AuthURL(f.conf, state))
}

func (f *OAuthFlow) callback(c *gin.Context) {
	ctx := c.Request.Context()

	// The state cookie is single use.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, "", -1, stateCookiePath, "", f.secureCookie, true)

	if denied := c.Query("error"); denied != "" {
		f.fail(c, http.StatusBadRequest, "authorization was not granted", fmt.Errorf("consent denied: %s", denied))
		return
	}

	if !f.validState(c) {
		f.fail(c, http.StatusBadRequest, "invalid or expired authorization state", nil)
		return
	}

	code := c.Query("code")
	if code == "" {
		f.fail(c, http.StatusBadRequest, "authorization code not provided", nil)
		return
	}

	token, err := google.ExchangeCode(ctx, f.conf, code)
	if err != nil {
		f.fail(c, http.StatusBadGateway, "failed to exchange authorization code", err)
		return
	}

	email, err := google.FetchUserEmail(ctx, f.conf.Client(ctx, token), f.userinfoOpts...)
	if err != nil {
		f.fail(c, http.StatusBadGateway, "failed to resolve the Google account", err)
		return
	}

	if err := f.tokens.SaveToken(email, token); err != nil {
		f.fail(c, http.StatusInternalServerError, "failed to store the authorization", err)
		return
	}

	f.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	f.logger.Info("google account connected", logging.UserHash(email))

	if f.frontendURL == "" {
		c.JSON(http.StatusOK, gin.H{"status": "connected", "user": email})
		return
	}
	c.Redirect(http.StatusFound, frontendRedirect(f.frontendURL, email))
}

func (f *OAuthFlow) validState(c *gin.Context) bool {
	raw, err := c.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	var state string
	if err := f.cookies.Decode(stateCookieName, raw, &state); err != nil {
		return false
	}
	got := c.Query("state")
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(state)) == 1
}

func (f *OAuthFlow) fail(c *gin.Context, status int, message string, err error) {
	f.metrics.RecordOAuthAuth(c.Request.Context(), instrumentation.OAuthResultFailure)
	f.logger.Warn("google authorization failed", slog.String("reason", message), logging.Err(err))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// frontendRedirect appends ?user=<email> to the frontend URL, keeping any
// query it already has.
func frontendRedirect(frontendURL, email string) string {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return frontendURL + "?user=" + url.QueryEscape(email)
	}
	q := u.Query()
	q.Set("user", email)
	u.RawQuery = q.Encode()
	return u.String()
}

// validateHTTPSRequirement rejects plain HTTP except for loopback hosts,
// which Google only allows as OAuth redirect targets during development.
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	// Parse URL to properly validate scheme and host
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("HTTPS is required outside of local development (got: %s)", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
