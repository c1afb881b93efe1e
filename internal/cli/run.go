package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"github.com/spf13/cobra"
	"github.com/youmna-rabie/mcp-relay/internal/channel"
	"github.com/youmna-rabie/mcp-relay/internal/config"
	"github.com/youmna-rabie/mcp-relay/internal/connectivity"
	"github.com/youmna-rabie/mcp-relay/internal/delivery"
	"github.com/youmna-rabie/mcp-relay/internal/journal"
	"github.com/youmna-rabie/mcp-relay/internal/render"
	"github.com/youmna-rabie/mcp-relay/internal/server"
	"github.com/youmna-rabie/mcp-relay/internal/source"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay HTTP server and Slack session",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	if cfg.MCP.SigningSecret == "" {
		logger.Warn("MCP_SIGNING_SECRET is not set, every webhook will be rejected")
	}

	store, err := journal.NewMemoryStore(cfg.Journal.Capacity)
	if err != nil {
		return fmt.Errorf("creating journal: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := connectivity.NewTracker()
	session, runner := buildSession(cfg, tracker, logger)
	fallback := buildFallback(cfg, logger)

	router := delivery.NewRouter(session, fallback, tracker, cfg.Delivery.SessionTimeout, logger)
	dispatcher := delivery.NewDispatcher(router, render.Render, store, logger)
	src := source.NewMCP("mcp", cfg.MCP.SigningSecret)
	srv := server.NewServer(cfg, src, dispatcher, tracker, store, logger)

	if runner != nil {
		go runner.Run(ctx)
	} else {
		logger.Info("slack session disabled, delivering through fallback only",
			"fallback", fallback.Name(),
		)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		waitForDeliveries(shutCtx, dispatcher, logger)
	}

	logger.Info("server stopped")
	return nil
}

// buildSession returns the Socket Mode backed channel and its runner, or nils
// when the session is not configured. The channel is an untyped nil in that
// case so the router sees no session at all.
func buildSession(cfg *config.Config, tracker *connectivity.Tracker, logger *slog.Logger) (delivery.Channel, *channel.SocketRunner) {
	if !cfg.SessionEnabled() {
		return nil, nil
	}
	api := slack.New(cfg.Slack.BotToken, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	client := socketmode.New(api)
	return channel.NewSessionChannel(api, cfg.Slack.ChannelID), channel.NewSocketRunner(client, tracker, logger)
}

func buildFallback(cfg *config.Config, logger *slog.Logger) delivery.Channel {
	if cfg.Delivery.DryRun {
		return &channel.LogChannel{Logger: logger}
	}
	return channel.NewWebhookChannel(cfg.Slack.WebhookURL, cfg.Slack.ChannelID, cfg.Delivery.WebhookTimeout)
}

func waitForDeliveries(ctx context.Context, d *delivery.Dispatcher, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("shutdown timed out with deliveries still in flight")
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
