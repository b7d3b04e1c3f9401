package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDatabaseURL = "sqlite:///pixelpaws.db"
	defaultCORSOrigins = "http://localhost:5173,*"
	defaultAPITitle    = "PixelPaws API"
)

type Config struct {
	Port            int
	GinMode         string
	TLSCertFile     string
	TLSKeyFile      string
	DatabaseURL     string
	LogSQL          bool
	CORSOrigins     []string
	APITitle        string
	LogLevel        string
	LogFormat       string
	SeedFixtures    bool
	ShutdownTimeout time.Duration
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// LoadConfig reads an optional .env file from the working directory and then
// the process environment. Variables already set in the environment win.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:            8000,
		GinMode:         "release",
		DatabaseURL:     defaultDatabaseURL,
		APITitle:        defaultAPITitle,
		LogLevel:        "info",
		LogFormat:       "json",
		SeedFixtures:    true,
		ShutdownTimeout: 10 * time.Second,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}

	var err error
	if cfg.LogSQL, err = parseBool(env, "DB_LOG_SQL", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedFixtures, err = parseBool(env, "SEED_FIXTURES", true); err != nil {
		return Config{}, err
	}

	rawOrigins := env.Getenv("CORS_ORIGINS")
	if rawOrigins == "" {
		rawOrigins = defaultCORSOrigins
	}
	if cfg.CORSOrigins, err = parseOrigins(rawOrigins); err != nil {
		return Config{}, err
	}

	if raw := env.Getenv("API_TITLE"); raw != "" {
		cfg.APITitle = raw
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		switch strings.ToLower(raw) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(raw)
		default:
			return Config{}, fmt.Errorf("invalid LOG_LEVEL")
		}
	}

	if raw := env.Getenv("LOG_FORMAT"); raw != "" {
		switch strings.ToLower(raw) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(raw)
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT")
		}
	}

	if raw := env.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT_SECONDS")
		}
		cfg.ShutdownTimeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}

func parseBool(env Env, key string, def bool) (bool, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

// parseOrigins splits a comma separated origin list. Each entry must be "*"
// or carry an http(s) scheme; blank entries are dropped.
func parseOrigins(raw string) ([]string, error) {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return nil, fmt.Errorf("invalid CORS_ORIGINS entry %q", o)
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf("invalid CORS_ORIGINS")
	}
	return origins, nil
}
