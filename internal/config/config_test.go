package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chdir isolates Load from any config.yaml or .env in the package directory.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("SCHOLARSHIP_ENDPOINT_URL", "https://gen.example.com/chat")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderEndpoint, cfg.Provider)
	require.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	require.Equal(t, 10, cfg.HistoryWindow)
	require.Equal(t, 5, cfg.FallbackLimit)
	require.Equal(t, "embedded", cfg.CatalogSource)
	require.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	require.True(t, cfg.Remote())
}

func TestLoad_NothingConfigured(t *testing.T) {
	chdir(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderEndpoint, cfg.Provider)
	require.Empty(t, cfg.EndpointURL)
	require.Equal(t, "endpoint_url", cfg.RemoteGap())
}

func TestRemoteGap(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Provider: ProviderEndpoint}, "endpoint_url"},
		{Config{Provider: ProviderEndpoint, EndpointURL: "https://gen.example.com"}, ""},
		{Config{Provider: ProviderOpenAI}, "openai_model"},
		{Config{Provider: ProviderOpenAI, OpenAIModel: "gpt-4o-mini"}, ""},
		{Config{Provider: ProviderNone}, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.cfg.RemoteGap(), "provider=%s", tt.cfg.Provider)
		c := tt.cfg
		c.CatalogSource, c.RemoteTimeout, c.HistoryWindow = "embedded", time.Second, 10
		c.FallbackLimit, c.MaxUtteranceLength, c.SessionIdleTTL = 5, 100, time.Minute
		require.NoError(t, c.Validate())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("SCHOLARSHIP_PROVIDER", "OpenAI")
	t.Setenv("SCHOLARSHIP_OPENAI_MODEL", "gpt-4o")
	t.Setenv("SCHOLARSHIP_REMOTE_TIMEOUT", "3s")
	t.Setenv("SCHOLARSHIP_FALLBACK_LIMIT", "2")
	t.Setenv("SCHOLARSHIP_PARAM_PREFIX", "/scholarship/prod/")
	t.Setenv("SCHOLARSHIP_CATALOG_SOURCE", "dynamodb")
	t.Setenv("SCHOLARSHIP_CATALOG_TABLE", "catalog")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.Provider)
	require.Equal(t, "gpt-4o", cfg.OpenAIModel)
	require.Equal(t, 3*time.Second, cfg.RemoteTimeout)
	require.Equal(t, 2, cfg.FallbackLimit)
	require.Equal(t, "/scholarship/prod", cfg.ParamPrefix)
	require.Equal(t, "catalog", cfg.CatalogTable)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "agent.env")
	require.NoError(t, os.WriteFile(path, []byte("SCHOLARSHIP_PROVIDER=none\nSCHOLARSHIP_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SCHOLARSHIP_PROVIDER")
		_ = os.Unsetenv("SCHOLARSHIP_LOG_LEVEL")
	})

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	require.False(t, cfg.Remote())
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("provider: none\nhistory_window: 4\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.HistoryWindow)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Provider:           ProviderNone,
			CatalogSource:      "embedded",
			RemoteTimeout:      time.Second,
			HistoryWindow:      10,
			FallbackLimit:      5,
			MaxUtteranceLength: 100,
			SessionIdleTTL:     time.Minute,
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	tests := map[string]func(*Config){
		"unknown provider":      func(c *Config) { c.Provider = "bard" },
		"file without path":     func(c *Config) { c.CatalogSource = "file" },
		"dynamodb without name": func(c *Config) { c.CatalogSource = "dynamodb" },
		"unknown source":        func(c *Config) { c.CatalogSource = "s3" },
		"zero timeout":          func(c *Config) { c.RemoteTimeout = 0 },
		"zero fallback":         func(c *Config) { c.FallbackLimit = 0 },
		"zero window":           func(c *Config) { c.HistoryWindow = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
