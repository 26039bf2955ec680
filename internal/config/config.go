package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries process-wide settings. The sessions secret signs both
// session tokens and transfer tokens; it is read once at startup and the
// process refuses to start without it.
type Config struct {
	Addr           string `yaml:"addr"`
	BaseURL        string `yaml:"base_url"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	SessionsSecret string `yaml:"sessions_secret"`
}

const (
	envConfig     = "GOLINKS_CONFIG"
	envConfigFile = "GOLINKS_CONFIG_FILE"
	envSecret     = "GOLINKS_SESSIONS_SECRET"
	envDSN        = "DATABASE_URL"
	envAddr       = "GOLINKS_ADDR"
	envBaseURL    = "GOLINKS_BASE_URL"
)

var ErrMissingSecret = errors.New("config: sessions secret is not configured")

// Load resolves configuration in precedence order: a full base64-encoded
// YAML document in GOLINKS_CONFIG, discrete environment variables, then an
// optional YAML file named by GOLINKS_CONFIG_FILE.
func Load() (Config, error) {
	cfg := Config{
		Addr:    ":8080",
		BaseURL: "http://localhost:8080",
	}

	switch {
	case os.Getenv(envConfig) != "":
		raw, err := base64.StdEncoding.DecodeString(os.Getenv(envConfig))
		if err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", envConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", envConfig, err)
		}
	case os.Getenv(envConfigFile) != "":
		raw, err := os.ReadFile(os.Getenv(envConfigFile))
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", os.Getenv(envConfigFile), err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", os.Getenv(envConfigFile), err)
		}
	}

	// Discrete variables override whichever document was loaded.
	if v := strings.TrimSpace(os.Getenv(envSecret)); v != "" {
		cfg.SessionsSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(envDSN)); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(envAddr)); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		cfg.BaseURL = v
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.SessionsSecret) == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}
