package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/calmate/internal/config"
	"github.com/teemow/calmate/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect a Google account from the terminal",
		Long: `Connect a Google account without the browser callback.

  1. calmate auth url            prints the consent URL
  2. open it and grant calendar access
  3. copy the "code" parameter from the redirect
  4. calmate auth save --code <code>

The token is stored under TOKENS_DIR keyed by the account email, the same
way GET /auth/google/callback stores it.`,
	}

	cmd.AddCommand(newAuthURLCmd())
	cmd.AddCommand(newAuthSaveCmd())
	return cmd
}

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the Google consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conf, err := requireOAuthConfig(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), google.AuthURL(conf, uuid.NewString()))
			return nil
		},
	}
}

func newAuthSaveCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Exchange an authorization code and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conf, err := requireOAuthConfig(cfg)
			if err != nil {
				return err
			}

			email, err := saveAuthorization(cmd.Context(), conf, google.NewFileTokenStore(cfg.TokensDir), code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the consent redirect")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func requireOAuthConfig(cfg config.Config) (*oauth2.Config, error) {
	conf, err := google.LoadOAuthConfig(cfg.ClientSecretsFile, cfg.OAuthRedirectURL(), google.DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google client secrets from %s: %w", cfg.ClientSecretsFile, err)
	}
	return conf, nil
}

// saveAuthorization exchanges code, resolves the account email and stores the
// token under it.
func saveAuthorization(ctx context.Context, conf *oauth2.Config, tokens google.TokenSaver, code string, opts ...option.ClientOption) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := google.ExchangeCode(ctx, conf, code)
	if err != nil {
		return "", err
	}

	email, err := google.FetchUserEmail(ctx, conf.Client(ctx, token), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to resolve the Google account: %w", err)
	}

	if err := tokens.SaveToken(email, token); err != nil {
		return "", err
	}
	return email, nil
}
