package google

import (
	"context"
	"fmt"
	"net/http"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// FetchUserEmail resolves the email of the account behind an authorised
// HTTP client. Extra options are passed to the userinfo service.
func FetchUserEmail(ctx context.Context, client *http.Client, opts ...option.ClientOption) (string, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("user info did not include an email address")
	}
	return info.Email, nil
}
