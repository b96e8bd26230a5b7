package chat

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultRequestTimeout bounds a single chat completion call.
const DefaultRequestTimeout = 60 * time.Second

// ClientConfig describes an OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL string
	APIKey  string

	// Referer and Title are sent as the HTTP-Referer and X-Title attribution
	// headers OpenRouter uses to identify the calling application.
	Referer string
	Title   string

	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
	Timeout   time.Duration
}

// NewOpenAIClient creates a go-openai client for cfg. The returned client
// satisfies Completer.
func NewOpenAIClient(cfg ClientConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	headers := http.Header{}
	if cfg.Referer != "" {
		headers.Set("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		headers.Set("X-Title", cfg.Title)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	oc.HTTPClient = &http.Client{
		Transport: &headerTransport{base: base, headers: headers},
		Timeout:   timeout,
	}

	return openai.NewClientWithConfig(oc)
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header[k] = v
	}
	return t.base.RoundTrip(req)
}
