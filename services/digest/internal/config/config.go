package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSMTPPort = 587
	defaultSubject  = "Digitale Gewässergüte: neue Kommentare"
	defaultTimeout  = time.Minute
)

// Config holds runtime configuration for the digest job.
type Config struct {
	DatabaseURL string
	LogLevel    string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// Recipients is used when no user has subscribed to comment mails.
	Recipients []string
	Subject    string
	// DashboardURL is linked from the mail when set.
	DashboardURL string
	Timeout      time.Duration
	DryRun       bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	cfg.SMTPHost = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	if cfg.SMTPHost == "" && !cfg.DryRun {
		return cfg, errors.New("SMTP_HOST is required unless DRY_RUN is set")
	}

	cfg.SMTPPort = defaultSMTPPort
	if v := strings.TrimSpace(os.Getenv("SMTP_PORT")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return cfg, fmt.Errorf("invalid SMTP_PORT: %q", v)
		}
		cfg.SMTPPort = p
	}

	cfg.SMTPUser = strings.TrimSpace(os.Getenv("SMTP_USER"))
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.SMTPFrom = strings.TrimSpace(os.Getenv("SMTP_FROM"))
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	if cfg.SMTPFrom == "" && !cfg.DryRun {
		return cfg, errors.New("SMTP_FROM or SMTP_USER is required")
	}

	for _, r := range strings.Split(os.Getenv("DIGEST_RECIPIENTS"), ",") {
		if r = strings.TrimSpace(r); r != "" {
			cfg.Recipients = append(cfg.Recipients, r)
		}
	}

	cfg.Subject = strings.TrimSpace(os.Getenv("DIGEST_SUBJECT"))
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}

	cfg.DashboardURL = strings.TrimSpace(os.Getenv("DIGEST_DASHBOARD_URL"))

	cfg.Timeout = defaultTimeout
	if v := strings.TrimSpace(os.Getenv("DIGEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DIGEST_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
