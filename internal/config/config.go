package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration options for the scheduler daemon
// (spec §6, "Configuration").
type Config struct {
	Addr             string
	AuthToken        string
	DatabaseURL      string
	LogLevel         string
	Mode             string
	PollInterval     time.Duration
	ShutdownGrace    time.Duration
	MaxResponseBytes int64
}

const (
	defaultAddr             = "0.0.0.0:8080"
	defaultLogLevel         = "info"
	defaultMode             = "http"
	defaultPollInterval     = 1 * time.Second
	defaultShutdownGrace    = 5 * time.Second
	defaultMaxResponseBytes = 10 * 1024 * 1024
)

func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Parse parses command line flags and environment variables into Config.
// Priority: CLI flags > environment variables > .env file > defaults,
// mirroring the teacher's precedence order.
func Parse() (*Config, error) {
	envFiles := []string{".env"}
	if configDir, err := os.UserConfigDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(configDir, "httpsched", ".env"))
	}
	_ = godotenv.Load(envFiles...) // optional file

	cfg := &Config{
		Addr:             getEnvString("HTTPSCHED_ADDR", defaultAddr),
		AuthToken:        getEnvString("HTTPSCHED_AUTH_TOKEN", ""),
		DatabaseURL:      getEnvString("HTTPSCHED_DATABASE_URL", ""),
		LogLevel:         getEnvString("HTTPSCHED_LOG_LEVEL", defaultLogLevel),
		Mode:             getEnvString("HTTPSCHED_MODE", defaultMode),
		PollInterval:     getEnvDuration("HTTPSCHED_POLL_INTERVAL_SECONDS", defaultPollInterval),
		ShutdownGrace:    getEnvDuration("HTTPSCHED_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace),
		MaxResponseBytes: getEnvInt64("HTTPSCHED_MAX_RESPONSE_BYTES", defaultMaxResponseBytes),
	}

	var addr, authToken, databaseURL, logLevel, mode string
	var pollInterval, shutdownGrace time.Duration
	var maxResponseBytes int64

	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides env)")
	flag.StringVar(&authToken, "auth-token", "", "Bearer/query token required on the control plane")
	flag.StringVar(&databaseURL, "database-url", "", "SQLite database path")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&mode, "mode", "", "Run mode: http, mcp, or both")
	flag.DurationVar(&pollInterval, "poll-interval", 0, "Scheduler tick period")
	flag.DurationVar(&shutdownGrace, "shutdown-grace", 0, "Grace period when shutting down")
	flag.Int64Var(&maxResponseBytes, "max-response-bytes", 0, "Cap on response body size read per attempt")

	flag.Parse()

	if addr != "" {
		cfg.Addr = addr
	}
	if authToken != "" {
		cfg.AuthToken = authToken
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if mode != "" {
		cfg.Mode = mode
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll-interval":
			cfg.PollInterval = pollInterval
		case "shutdown-grace":
			cfg.ShutdownGrace = shutdownGrace
		case "max-response-bytes":
			cfg.MaxResponseBytes = maxResponseBytes
		}
	})

	if cfg.DatabaseURL == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = filepath.Join(dir, "httpsched.db")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	switch strings.ToLower(cfg.Mode) {
	case "http", "mcp", "both":
		cfg.Mode = strings.ToLower(cfg.Mode)
	default:
		cfg.Mode = defaultMode
	}

	return cfg, nil
}

func defaultStateDir() (string, error) {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(baseDir, "httpsched")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}
