// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the bot's settings
// such as the database path, operator identity, timezone, cycle intervals,
// probing and notification pacing, and logging.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Storage
	DBPath string // SQLite path

	// Identity / time
	OperatorID int64          // OPERATOR_ID, the chat id of the operator
	Timezone   string         // TIMEZONE, IANA name
	Loc        *time.Location // resolved from Timezone

	// Cycles
	LicenseCheckInterval time.Duration // must stay below 1h, see validation
	CertCheckInterval    time.Duration
	ProbeTimeout         time.Duration // TLS dial+handshake budget per host

	// Notification pacing
	NotifyRPS   float64 // outbound messages per second (0 = unlimited)
	NotifyBurst int     // bucket size (>= 1)

	// Observability
	MetricsAddr string // e.g. ":9090"; empty disables the metrics listener

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		DBPath: getenv("DB_PATH", "expirybot.db"),

		OperatorID: getint64("OPERATOR_ID", 0),
		Timezone:   getenv("TIMEZONE", "Asia/Yekaterinburg"),

		LicenseCheckInterval: getdur("LICENSE_CHECK_INTERVAL", 55*time.Minute),
		CertCheckInterval:    getdur("CERT_CHECK_INTERVAL", 12*time.Hour),
		ProbeTimeout:         getdur("PROBE_TIMEOUT", 5*time.Second),

		NotifyRPS:   getfloat("NOTIFY_RPS", 25.0),
		NotifyBurst: getint("NOTIFY_BURST", 5),

		MetricsAddr: getenv("METRICS_ADDR", ""),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.OperatorID <= 0 {
		return cfg, errors.New("OPERATOR_ID must be set to the operator's chat id")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, errors.New("TIMEZONE must be a valid IANA zone name, e.g. Asia/Yekaterinburg")
	}
	cfg.Loc = loc

	if cfg.LicenseCheckInterval <= 0 {
		return cfg, errors.New("LICENSE_CHECK_INTERVAL must be > 0")
	}
	// The daily send window is one hour wide; a slower license tick
	// could land on both sides of it and never fire.
	if cfg.LicenseCheckInterval >= time.Hour {
		return cfg, errors.New("LICENSE_CHECK_INTERVAL must be below 1h")
	}
	if cfg.CertCheckInterval <= 0 {
		return cfg, errors.New("CERT_CHECK_INTERVAL must be > 0")
	}
	if cfg.ProbeTimeout <= 0 {
		return cfg, errors.New("PROBE_TIMEOUT must be > 0")
	}
	if cfg.NotifyRPS < 0 {
		return cfg, errors.New("NOTIFY_RPS must be >= 0")
	}
	if cfg.NotifyBurst < 1 {
		return cfg, errors.New("NOTIFY_BURST must be >= 1")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
