package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/saadiahenna/hennabook/internal/booking"
	"github.com/saadiahenna/hennabook/internal/config"
	httpserver "github.com/saadiahenna/hennabook/internal/http"
	"github.com/saadiahenna/hennabook/internal/logging"
	"github.com/saadiahenna/hennabook/internal/notify"
	"github.com/saadiahenna/hennabook/internal/store"
	"github.com/saadiahenna/hennabook/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"store":       cfg.Store,
		"mail_driver": cfg.Mail.Driver,
		"base_url":    cfg.BaseURL,
	}).Info("starting booking server")
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(mailer, notify.Config{
		From:         cfg.Mail.From,
		Owner:        cfg.Mail.Owner,
		BusinessName: cfg.Business.Name,
	})
	if err != nil {
		return err
	}

	svc := booking.NewService(st.Bookings, dispatcher, booking.Config{
		BaseURL:         cfg.BaseURL,
		DefaultTimezone: cfg.Business.DefaultTimezone,
		BusinessName:    cfg.Business.Name,
	}, logger)

	router := httpserver.NewRouter(cfg, st, ui.NewHandler(cfg, svc), logger)
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*store.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, bookings are lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create db pool: %w", err)
	}

	if cfg.DB.Migrate {
		if _, err := store.ApplyMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	return store.NewPostgres(pool), pool.Close, nil
}

func newMailer(cfg *config.Config, logger *logrus.Logger) (notify.Mailer, error) {
	if cfg.Mail.Driver == config.MailDriverLog {
		return &notify.Recorder{Log: logger.WithField("component", "mail")}, nil
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Secure:   cfg.SMTP.Secure,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		Timeout:  20 * time.Second,
	})
}
