package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rfenton/dmreply/internal/config"
	"github.com/rfenton/dmreply/internal/health"
	"github.com/rfenton/dmreply/internal/metrics"
	"github.com/rfenton/dmreply/internal/notify"
	"github.com/rfenton/dmreply/internal/platform"
	"github.com/rfenton/dmreply/internal/responder"
	"github.com/rfenton/dmreply/internal/session"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("incomplete configuration")
		logger.Fatal().Msg("please set USERNAME, PASSWORD and TARGET_USERNAME (environment or .env)")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("target", cfg.TargetUsername).
		Dur("interval", cfg.Interval()).
		Bool("notify_enabled", cfg.NotifyEnabled()).
		Msg("starting dm responder")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
	}()

	m := metrics.New()
	checker := health.NewChecker(logger)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotifyEnabled() {
		notifier = notify.NewSlackNotifier(cfg.NotifySlackToken, cfg.NotifySlackChannel, logger)
		logger.Info().Str("channel", cfg.NotifySlackChannel).Msg("operator notifications enabled")
	}

	// Health + metrics endpoint
	var server *http.Server
	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", health.LivenessHandler())
		mux.HandleFunc("/ready", checker.ReadinessHandler())
		mux.Handle("/metrics", m.Handler())

		server = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server starting")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("HTTP server error")
			}
		}()
	}

	client := platform.NewAPIClient(cfg.PlatformBaseURL, logger)
	prompter := session.NewStdinPrompter(os.Stdin, os.Stdout)
	manager := session.NewManager(client, cfg.SessionFile, prompter, m, logger)

	if !manager.Establish(ctx, cfg.Username, cfg.Password) {
		notifyErr(notifier, "login failed", "could not establish a platform session; see logs for remediation")
		shutdown(server, logger)
		os.Exit(1)
	}

	checker.Register("session", func(ctx context.Context) health.Status {
		if client.SelfID() == "" {
			return health.StatusDown
		}
		return health.StatusOK
	})

	notifyInfo(notifier, "dm responder started",
		"monitoring messages from @"+cfg.TargetUsername)

	bot := responder.New(client, responder.Config{
		TargetUsername:  cfg.TargetUsername,
		ResponseMessage: cfg.ResponseMessage,
		Interval:        cfg.Interval(),
	}, m, logger)

	if err := bot.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("responder stopped with error")
		notifyErr(notifier, "dm responder failed", err.Error())
		shutdown(server, logger)
		os.Exit(1)
	}

	notifyInfo(notifier, "dm responder stopped", "graceful shutdown")
	shutdown(server, logger)
	logger.Info().Msg("dm responder stopped")
}

func shutdown(server *http.Server, logger zerolog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
}

func notifyInfo(n notify.Notifier, title, msg string) {
	notifySend(n, notify.LevelInfo, title, msg)
}

func notifyErr(n notify.Notifier, title, msg string) {
	notifySend(n, notify.LevelCritical, title, msg)
}

func notifySend(n notify.Notifier, level notify.Level, title, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := n.Notify(ctx, notify.Event{Level: level, Title: title, Message: msg}); err != nil {
		log.Warn().Err(err).Msg("operator notification failed")
	}
}
