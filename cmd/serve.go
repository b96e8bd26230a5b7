package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/teemow/calmate/internal/chat"
	"github.com/teemow/calmate/internal/instrumentation"
	"github.com/teemow/calmate/internal/logging"
	"github.com/teemow/calmate/internal/server"
	"github.com/teemow/calmate/internal/tools/scheduling_tools"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		addr           string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the CalMate HTTP API.

Endpoints:
  POST /check-availability, /book-event, /find-open-slots, /book
  POST /chat                   (requires LLM_API_KEY)
  GET  /auth/google[/callback] (requires GOOGLE_CLIENT_SECRETS_FILE)
  GET  /healthz, /readyz, /healthz/detailed

Metrics are served on a dedicated port when the Prometheus exporter is
selected (METRICS_EXPORTER=prometheus, the default).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				if env := os.Getenv("METRICS_ADDR"); env != "" {
					metricsAddr = env
				}
			}
			return runServe(addr, MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP API address. Overrides LISTEN_ADDR (default \":8000\")")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(addr string, metricsConfig MetricsConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(shutdownCtx, cfg, appOptions{telemetry: true, surface: instrumentation.SurfaceHTTP})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(ctx)
	}()

	if err := attachChat(a); err != nil {
		return err
	}

	api, err := server.NewAPIServer(a.sc, server.APIServerConfig{
		Addr:    a.cfg.ListenAddr,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && a.provider.ServesPrometheus() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			Enabled:                 true,
			InstrumentationProvider: a.provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	serverErr := make(chan error, 2)
	go func() {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("API server stopped: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("metrics server stopped: %w", err)
			}
		}()
		a.logger.Info("metrics server started", "addr", metricsServer.Addr())
	}

	var runErr error
	select {
	case <-shutdownCtx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-serverErr:
		a.logger.Error("server failed", logging.Err(runErr))
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := api.Shutdown(ctx); err != nil {
		a.logger.Warn("error during API server shutdown", logging.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("error during metrics server shutdown", logging.Err(err))
		}
	}

	return runErr
}

// attachChat builds the chat dispatcher when an LLM key is configured.
// Without one, POST /chat answers 503.
func attachChat(a *app) error {
	if a.cfg.LLMAPIKey == "" {
		a.logger.Info("LLM_API_KEY not set; chat endpoint disabled")
		return nil
	}

	dispatcher, err := chat.NewDispatcher(chat.DispatcherConfig{
		Client: chat.NewOpenAIClient(chat.ClientConfig{
			BaseURL: a.cfg.LLMBaseURL,
			APIKey:  a.cfg.LLMAPIKey,
			Referer: a.cfg.LLMReferer,
			Title:   a.cfg.LLMTitle,
		}),
		Model:   a.cfg.LLMModel,
		Tools:   scheduling_tools.ChatTools(a.sc),
		Metrics: a.sc.Metrics(),
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat dispatcher: %w", err)
	}

	a.sc.SetChat(dispatcher)
	a.logger.Info("chat enabled", "model", a.cfg.LLMModel, "base_url", a.cfg.LLMBaseURL)
	return nil
}
