// Package config loads agent settings from the environment, an optional
// .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SCHOLARSHIP"

// Provider names.
const (
	ProviderEndpoint = "endpoint"
	ProviderOpenAI   = "openai"
	ProviderNone     = "none"
)

type Config struct {
	Provider      string `mapstructure:"provider"`
	EndpointURL   string `mapstructure:"endpoint_url"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	OpenAIModel   string `mapstructure:"openai_model"`
	APIKey        string `mapstructure:"api_key"`
	// ParamPrefix is the SSM path holding api_key when it is not set directly.
	ParamPrefix string `mapstructure:"param_prefix"`

	RemoteTimeout      time.Duration `mapstructure:"remote_timeout"`
	HistoryWindow      int           `mapstructure:"history_window"`
	FallbackLimit      int           `mapstructure:"fallback_limit"`
	MaxUtteranceLength int           `mapstructure:"max_utterance_length"`

	CatalogSource  string `mapstructure:"catalog_source"`
	CatalogPath    string `mapstructure:"catalog_path"`
	CatalogTable   string `mapstructure:"catalog_table"`
	CatalogVersion string `mapstructure:"catalog_version"`

	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	HTTPAddr  string `mapstructure:"http_addr"`
}

var defaults = map[string]interface{}{
	"provider":             ProviderEndpoint,
	"endpoint_url":         "",
	"openai_base_url":      "https://api.openai.com/v1",
	"openai_model":         "gpt-4o-mini",
	"api_key":              "",
	"param_prefix":         "",
	"remote_timeout":       15 * time.Second,
	"history_window":       10,
	"fallback_limit":       5,
	"max_utterance_length": 1000,
	"catalog_source":       "embedded",
	"catalog_path":         "",
	"catalog_table":        "",
	"catalog_version":      "",
	"session_idle_ttl":     30 * time.Minute,
	"log_level":            "info",
	"log_format":           "json",
	"http_addr":            ":8080",
}

// Load reads configuration. Environment variables (SCHOLARSHIP_<KEY>) win
// over the first env file found, which wins over config.yaml and defaults.
// With no env files given, ".env" in the working directory is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := loadEnvFile(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.CatalogSource = strings.ToLower(strings.TrimSpace(c.CatalogSource))
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.ParamPrefix = strings.TrimRight(strings.TrimSpace(c.ParamPrefix), "/")
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate rejects settings the agent cannot start with. Incomplete remote
// settings (no API key, no endpoint_url, no model) are not errors here; the
// agent then runs in local mode. See RemoteGap.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderEndpoint, ProviderOpenAI, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	switch c.CatalogSource {
	case "embedded":
	case "file":
		if strings.TrimSpace(c.CatalogPath) == "" {
			errs = append(errs, errors.New("catalog_path is required for catalog_source file"))
		}
	case "dynamodb":
		if strings.TrimSpace(c.CatalogTable) == "" {
			errs = append(errs, errors.New("catalog_table is required for catalog_source dynamodb"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog_source %q", c.CatalogSource))
	}

	if c.RemoteTimeout <= 0 {
		errs = append(errs, errors.New("remote_timeout must be positive"))
	}
	if c.HistoryWindow <= 0 {
		errs = append(errs, errors.New("history_window must be positive"))
	}
	if c.FallbackLimit <= 0 {
		errs = append(errs, errors.New("fallback_limit must be positive"))
	}
	if c.MaxUtteranceLength <= 0 {
		errs = append(errs, errors.New("max_utterance_length must be positive"))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, errors.New("session_idle_ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// RemoteGap names the setting the selected provider is missing, or returns
// "" when the provider settings are complete. The API key is resolved
// separately.
func (c *Config) RemoteGap() string {
	switch c.Provider {
	case ProviderEndpoint:
		if strings.TrimSpace(c.EndpointURL) == "" {
			return "endpoint_url"
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIModel) == "" {
			return "openai_model"
		}
	}
	return ""
}

// Remote reports whether a remote generation provider is configured.
func (c *Config) Remote() bool {
	return c.Provider != ProviderNone
}
