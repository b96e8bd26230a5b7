package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/config"
	"github.com/teemow/calmate/internal/google"
	"github.com/teemow/calmate/internal/instrumentation"
)

// testEnv points every file the configuration names into a temp dir.
func testEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TIME_ZONE", "Asia/Kolkata")
	t.Setenv("TOKENS_DIR", filepath.Join(dir, "tokens"))
	t.Setenv("GOOGLE_CLIENT_SECRETS_FILE", filepath.Join(dir, "missing_client_secret.json"))
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(dir, "missing_credentials.json"))
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	testEnv(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, appOptions{logOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func TestNewApp_WithoutClientSecrets(t *testing.T) {
	a := newTestApp(t)

	assert.Nil(t, a.sc.OAuthConfig(), "sign-in is disabled without client secrets")
	assert.NotNil(t, a.sc.Tokens())
	assert.NotNil(t, a.sc.Booking())
	assert.False(t, a.provider.Enabled())
}

func TestAttachChat(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, attachChat(a))
	assert.Nil(t, a.sc.Chat(), "no key, no chat")

	a.cfg.LLMAPIKey = "sk-test"
	require.NoError(t, attachChat(a))
	assert.NotNil(t, a.sc.Chat())
}

func TestToolsMarkdown(t *testing.T) {
	a := newTestApp(t)

	markdown, err := toolsMarkdown(a.sc)
	require.NoError(t, err)

	for _, name := range []string{"findOpenSlots", "checkAvailability", "bookEvent", "bookFromText"} {
		assert.Contains(t, markdown, "### "+name+"\n")
	}

	chatSection := markdown[strings.Index(markdown, "## "+categoryChat+"\n"):]
	mcpSection := markdown[strings.Index(markdown, "## "+categoryMCPOnly+"\n"):]
	assert.NotContains(t, chatSection, "### bookFromText")
	assert.Contains(t, mcpSection, "### bookFromText")
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("checkAvailability",
		mcp.WithDescription("Check whether a slot is free."),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Start of the slot")),
		mcp.WithString("user_email"),
	)

	got := generateToolMarkdown(tool)
	assert.Equal(t, "### checkAvailability\n\n"+
		"Check whether a slot is free.\n\n"+
		"**Arguments:**\n"+
		"- `start_time` (string, required): Start of the slot\n"+
		"- `user_email` (string, optional): string parameter\n\n", got)
}

func TestExtractCmd(t *testing.T) {
	testEnv(t)

	tests := []struct {
		name string
		args []string
		want *regexp.Regexp
	}{
		{name: "explicit time", args: []string{"call", "tomorrow", "at", "3", "PM"}, want: regexp.MustCompile(`^\d{4}-\d{2}-\d{2} at 03:00 PM\n$`)},
		{name: "nothing to extract", args: []string{"gibberish"}, want: regexp.MustCompile(`^unknown\n$`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newExtractCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Regexp(t, tt.want, out.String())
		})
	}
}

func TestExtractCmd_RequiresText(t *testing.T) {
	cmd := newExtractCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "calmate version 1.2.3\n", out.String())
}

func TestSaveAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			require.NoError(t, r.ParseForm())
			if r.Form.Get("code") != "cli-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "access-cli",
				"refresh_token": "refresh-cli",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		case "/oauth2/v2/userinfo", "/userinfo":
			_ = json.NewEncoder(w).Encode(map[string]string{"email": "carol@example.com"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tokens := google.NewFileTokenStore(t.TempDir())
	userinfo := option.WithEndpoint(srv.URL + "/")

	email, err := saveAuthorization(context.Background(), conf, tokens, "cli-code", userinfo)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", email)

	tok, err := tokens.GetTokenForAccount(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "refresh-cli", tok.RefreshToken)

	_, err = saveAuthorization(context.Background(), conf, tokens, "wrong-code", userinfo)
	assert.Error(t, err)

	_, err = saveAuthorization(context.Background(), conf, tokens, "", userinfo)
	assert.Error(t, err)
}

func TestLoadOAuthConfig_MissingFileDisablesSignIn(t *testing.T) {
	testEnv(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	conf, err := loadOAuthConfig(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Nil(t, conf)
}

func TestRunMCP_Transports(t *testing.T) {
	testEnv(t)

	err := runMCP(mcpOptions{transport: "websocket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")

	err = runMCP(mcpOptions{transport: transportStreamableHTTP, baseURL: "http://localhost:8080"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs Google client secrets")
}

func TestDeployment(t *testing.T) {
	testEnv(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	tests := []struct {
		name       string
		opts       appOptions
		userSignIn bool
		wantMode   string
	}{
		{name: "service account only", opts: appOptions{surface: instrumentation.SurfaceHTTP}, wantMode: instrumentation.CalendarModeService},
		{name: "google sign-in", opts: appOptions{surface: instrumentation.SurfaceMCPStdio}, userSignIn: true, wantMode: instrumentation.CalendarModePerUser},
		{
			name:       "signed-in mcp callers",
			opts:       appOptions{surface: instrumentation.SurfaceMCPStreamable, userTokens: google.NewFileTokenStore(t.TempDir())},
			userSignIn: true,
			wantMode:   instrumentation.CalendarModeCaller,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deployment(cfg, tt.opts, tt.userSignIn)
			assert.Equal(t, tt.wantMode, d.CalendarMode)
			assert.Equal(t, tt.opts.surface, d.Surface)
			assert.Equal(t, "Asia/Kolkata", d.TimeZone)
			assert.Equal(t, cfg.SlotWindowStartHour, d.WindowStartHour)
			assert.Equal(t, cfg.SlotWindowEndHour, d.WindowEndHour)

			instr := instrumentation.Config{Deployment: d}
			assert.NoError(t, instr.Validate())
		})
	}
}
