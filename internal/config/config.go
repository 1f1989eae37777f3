// Package config reads the command line defaults from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-formstate/pkg/lookup"
)

// Environment variable names.
const (
	EnvLookupURL     = "FORMSTATE_LOOKUP_URL"
	EnvLookupTimeout = "FORMSTATE_LOOKUP_TIMEOUT"
	EnvLogLevel      = "FORMSTATE_LOG_LEVEL"
	EnvThemeVariant  = "FORMSTATE_THEME_VARIANT"
	EnvMockAddr      = "FORMSTATE_MOCK_ADDR"
	EnvFormat        = "FORMSTATE_FORMAT"
)

// Config is the typed configuration of the formstate command.
type Config struct {
	LookupURL     string
	LookupTimeout time.Duration
	LogLevel      string
	ThemeVariant  string
	MockAddr      string
	Format        string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LookupURL:     lookup.DefaultBaseURL,
		LookupTimeout: 5 * time.Second,
		LogLevel:      "info",
		MockAddr:      "127.0.0.1:8089",
		Format:        "pretty",
	}
}

// Load reads the env files (".env" when none are given) and overlays the
// environment on Default. Missing files are ignored; a malformed value is an
// error.
func Load(envFiles ...string) (Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	cfg := Default()
	cfg.LookupURL = env(EnvLookupURL, cfg.LookupURL)
	cfg.LogLevel = strings.ToLower(env(EnvLogLevel, cfg.LogLevel))
	cfg.ThemeVariant = env(EnvThemeVariant, cfg.ThemeVariant)
	cfg.MockAddr = env(EnvMockAddr, cfg.MockAddr)
	cfg.Format = env(EnvFormat, cfg.Format)
	if raw := env(EnvLookupTimeout, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", EnvLookupTimeout, err)
		}
		cfg.LookupTimeout = d
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
