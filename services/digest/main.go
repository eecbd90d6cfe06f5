package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gewaesserguete/digitale-gewaesserguete/internal/logger"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/config"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/db"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/digest"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/digest/internal/mailer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "digest failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, "digest")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var sender digest.Sender = mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
	})
	if cfg.DryRun {
		sender = mailer.LogSender{Log: log}
	}

	res, err := digest.Run(ctx, db.NewStore(pool), sender, digest.Options{
		From:               cfg.SMTPFrom,
		Subject:            cfg.Subject,
		FallbackRecipients: cfg.Recipients,
		DashboardURL:       cfg.DashboardURL,
		DryRun:             cfg.DryRun,
		Logger:             log,
	})
	if err != nil {
		return err
	}

	log.Info("digest finished",
		"pending", res.Pending,
		"sections", res.Sections,
		"recipients", res.Recipients,
		"sent", res.Sent,
		"cleared", res.Cleared,
		"dry_run", cfg.DryRun,
	)
	return nil
}
