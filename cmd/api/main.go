package main

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

	"github.com/vzubenko/npd-receipt-backend/internal/api"
	"github.com/vzubenko/npd-receipt-backend/internal/config"
	"github.com/vzubenko/npd-receipt-backend/internal/failstore"
	"github.com/vzubenko/npd-receipt-backend/internal/mail"
	"github.com/vzubenko/npd-receipt-backend/internal/nalog"
	"github.com/vzubenko/npd-receipt-backend/internal/observability/metrics"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Metrics ───────────────────────────────────────────────────────────────
	metrics.Init()

	// ── Tax service ───────────────────────────────────────────────────────────
	nalogClient := nalog.NewClient(nalog.Config{
		BaseURL:      cfg.NalogBaseURL,
		RefreshToken: cfg.NalogRefreshToken,
		DeviceID:     cfg.NalogDeviceID,
	})
	registrar := nalog.NewRetryingRegistrar(nalogClient, logger)

	// ── Mail (SMTP) ───────────────────────────────────────────────────────────
	mailer := mail.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPassword,
		cfg.MailFromName,
	)

	// ── Failure store ─────────────────────────────────────────────────────────
	recorder := failstore.New(cfg.ErrorFile, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		registrar,
		nalogClient,
		mailer,
		recorder,
		api.Config{
			APIPass:    cfg.APIPass,
			AppName:    cfg.AppName,
			INN:        cfg.NalogINN,
			AdminEmail: cfg.AdminEmail,
			Env:        cfg.Env,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // registration retries alone can take ~6s
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight requests (including a retry cycle) time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
