package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"callscribe/internal/api"
	"callscribe/internal/bot"
)

const (
	shutdownTimeout = 10 * time.Second
	gcInterval      = 10 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a token is configured, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	a, err := newApp(journalReadWrite)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	// Create context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.journal.RunGC(ctx, gcInterval)

	// --- HTTP Server ---
	router := api.NewRouter(a.svc, api.RouterConfig{
		Mode:      a.cfg.GinMode,
		RateRPS:   a.cfg.RateRPS,
		RateBurst: a.cfg.RateBurst,
	}, log, time.Now())

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// --- Telegram Bot ---
	if a.cfg.TelegramBotToken != "" {
		botHandler, err := bot.NewHandler(a.cfg.TelegramBotToken, a.svc, log)
		if err != nil {
			log.WithError(err).Error("Telegram bot disabled")
		} else {
			go botHandler.Start(ctx)
		}
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	log.Info("callscribe is running. Press Ctrl+C to exit.")

	// --- Wait for Shutdown Signal ---
	select {
	case <-ctx.Done():
	case err, ok := <-srvErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	// --- Graceful Shutdown ---
	log.Info("Shutting down callscribe...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("callscribe shut down gracefully.")
	return nil
}
