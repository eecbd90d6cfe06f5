package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL string
	Port        int
	BearerToken string
	LogLevel    string
	Mode        string

	DBMaxConns       int
	DBIdleTimeout    time.Duration
	DBConnectTimeout time.Duration
	DBHealthInterval time.Duration

	PythonBin             string
	PythonVenv            string
	EnginePath            string
	EngineConfigModule    string
	EngineGeneratorModule string
	ScratchDir            string

	DashboardTimeout       time.Duration
	DashboardMaxConcurrent int
	DashboardRatePerMin    int
	ExposeToolErrors       bool

	AdminEmails []string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:                   8080,
		LogLevel:               "info",
		Mode:                   ModeDevelopment,
		DBMaxConns:             20,
		DBIdleTimeout:          30 * time.Second,
		DBConnectTimeout:       2 * time.Second,
		DBHealthInterval:       30 * time.Second,
		PythonBin:              "python3",
		PythonVenv:             ".venv",
		EngineConfigModule:     "config",
		EngineGeneratorModule:  "html_dashboard_generator",
		ScratchDir:             os.TempDir(),
		DashboardTimeout:       2 * time.Minute,
		DashboardMaxConcurrent: 2,
		DashboardRatePerMin:    30,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if lvl := strings.TrimSpace(os.Getenv("LOG_LEVEL")); lvl != "" {
		cfg.LogLevel = lvl
	}

	if mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))); mode != "" {
		switch mode {
		case ModeProduction, "prod":
			cfg.Mode = ModeProduction
		case ModeDevelopment, "dev":
			cfg.Mode = ModeDevelopment
		default:
			return cfg, fmt.Errorf("invalid APP_ENV: %s", mode)
		}
	}

	var err error
	if cfg.DBMaxConns, err = positiveInt("DB_MAX_CONNS", cfg.DBMaxConns); err != nil {
		return cfg, err
	}
	if cfg.DBIdleTimeout, err = duration("DB_IDLE_TIMEOUT", cfg.DBIdleTimeout); err != nil {
		return cfg, err
	}
	if cfg.DBConnectTimeout, err = duration("DB_CONNECT_TIMEOUT", cfg.DBConnectTimeout); err != nil {
		return cfg, err
	}
	if cfg.DBHealthInterval, err = duration("DB_HEALTH_INTERVAL", cfg.DBHealthInterval); err != nil {
		return cfg, err
	}

	if v := strings.TrimSpace(os.Getenv("PYTHON_BIN")); v != "" {
		cfg.PythonBin = v
	}
	if v := strings.TrimSpace(os.Getenv("PYTHON_VENV")); v != "" {
		cfg.PythonVenv = v
	}
	cfg.EnginePath = strings.TrimSpace(os.Getenv("ENGINE_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_CONFIG_MODULE")); v != "" {
		cfg.EngineConfigModule = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_GENERATOR_MODULE")); v != "" {
		cfg.EngineGeneratorModule = v
	}
	if v := strings.TrimSpace(os.Getenv("SCRATCH_DIR")); v != "" {
		cfg.ScratchDir = v
	}

	if cfg.DashboardTimeout, err = duration("DASHBOARD_TIMEOUT", cfg.DashboardTimeout); err != nil {
		return cfg, err
	}
	if cfg.DashboardMaxConcurrent, err = positiveInt("DASHBOARD_MAX_CONCURRENT", cfg.DashboardMaxConcurrent); err != nil {
		return cfg, err
	}
	if cfg.DashboardRatePerMin, err = positiveInt("DASHBOARD_RATE_PER_MIN", cfg.DashboardRatePerMin); err != nil {
		return cfg, err
	}

	expose := strings.TrimSpace(os.Getenv("DASHBOARD_EXPOSE_ERRORS"))
	cfg.ExposeToolErrors = expose == "1" || strings.EqualFold(expose, "true")

	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, email)
		}
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Interpreter resolves the executable used to run the dashboard engine.
// Production uses the fixed interpreter name, development the virtualenv.
func (c Config) Interpreter() string {
	if c.Mode == ModeProduction {
		return c.PythonBin
	}
	return filepath.Join(c.PythonVenv, "bin", "python")
}

func positiveInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
