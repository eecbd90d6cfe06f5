package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gewaesserguete/digitale-gewaesserguete/internal/logger"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/comments"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/config"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/dashboard"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/db"
	httpserver "github.com/gewaesserguete/digitale-gewaesserguete/services/api/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, "api")
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        int32(cfg.DBMaxConns),
		MaxConnIdleTime: cfg.DBIdleTimeout,
		ConnectTimeout:  cfg.DBConnectTimeout,
		OnError: func(err error) {
			log.Error("database pool error", "error", err)
		},
	})
	if err != nil {
		return fmt.Errorf("db setup error: %w", err)
	}
	defer store.Close()
	go store.Watch(ctx, cfg.DBHealthInterval)

	synth, err := dashboard.NewPythonSynthesizer(cfg.EnginePath, cfg.EngineConfigModule, cfg.EngineGeneratorModule)
	if err != nil {
		return fmt.Errorf("dashboard engine config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dashboards := dashboard.NewService(store, synth, dashboard.NewRunner(cfg.Interpreter(), cfg.DashboardTimeout, log), dashboard.Options{
		ScratchDir:       cfg.ScratchDir,
		MaxConcurrent:    cfg.DashboardMaxConcurrent,
		StationsEndpoint: "/api/v1/stations/with-data",
		DashboardBase:    "/api/v1/dashboard",
		Logger:           log,
		Metrics:          dashboard.NewMetrics(reg),
	})

	srv := httpserver.New(cfg, httpserver.Deps{
		Dashboards: dashboards,
		Stations:   store,
		Comments:   comments.NewService(store, cfg.AdminEmails, log),
		Health:     store,
		Gatherer:   reg,
		Logger:     log,
	})
	log.Info("REST API listening", "addr", cfg.ListenAddr(), "mode", cfg.Mode, "interpreter", cfg.Interpreter())

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
