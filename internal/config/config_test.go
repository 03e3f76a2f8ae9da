package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears overrides
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{
		"TRANSITDESK_API_URL",
		"TRANSITDESK_HTTP_TIMEOUT",
		"TRANSITDESK_SESSION_BACKEND",
		"TRANSITDESK_SESSION_PATH",
		"LOG_LEVEL",
		"LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.API.LogoutOnRefreshRejected)
	assert.Equal(t, BackendFile, cfg.Session.Backend)
	assert.Equal(t, "localhost:8080", cfg.APIHost())

	path, err := cfg.SessionPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transitdesk", "session.json"), path)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := isolate(t)

	content := `
api:
  url: https://transit.example.com/api/v1
  timeout: 45s
  logout_on_refresh_rejected: false
session:
  backend: sqlite
logging:
  level: debug
  format: json
`
	path := filepath.Join(dir, "transitdesk", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://transit.example.com/api/v1", cfg.API.URL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.API.LogoutOnRefreshRejected)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, "json", cfg.Logging.Format)

	sessionPath, err := cfg.SessionPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "transitdesk", "session.db"), sessionPath)

	t.Setenv("TRANSITDESK_API_URL", "http://127.0.0.1:9000/api/v1")
	t.Setenv("TRANSITDESK_SESSION_BACKEND", "memory")
	t.Setenv("TRANSITDESK_HTTP_TIMEOUT", "5s")

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api/v1", cfg.API.URL)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
}

func TestLoad_LeavesValidationToCaller(t *testing.T) {
	isolate(t)
	t.Setenv("TRANSITDESK_SESSION_BACKEND", "bogus")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bogus", cfg.Session.Backend)
	require.Error(t, cfg.Validate())

	// A later override repairs what the environment broke
	cfg.Session.Backend = BackendMemory
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidTimeoutEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TRANSITDESK_HTTP_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid TRANSITDESK_HTTP_TIMEOUT "soon"`)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.API.URL = "/api/v1" }, wantErr: "must be an absolute http(s) URL"},
		{name: "ftp url", mutate: func(c *Config) { c.API.URL = "ftp://example.com" }, wantErr: "must be an absolute http(s) URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: "api timeout must be positive"},
		{name: "bad backend", mutate: func(c *Config) { c.Session.Backend = "cookie" }, wantErr: "invalid session backend"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "config.yaml")

	cfg := defaultConfig()
	cfg.API.URL = "https://transit.example.com/api/v1"
	cfg.Session.Backend = BackendKeyring
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
