package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  http:
    host: "localhost"
    port: 8080
  grpc:
    enabled: true
    port: 9191
cors:
  allowed_origin: "http://localhost:3000"
  allow_credentials: true
chemistry:
  max_concurrency: 2
pubchem:
  base_url: "https://pubchem.example.org/rest/pug"
  timeout: 5s
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Server.HTTP.Host)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 9191, cfg.Server.GRPC.Port)
	assert.Equal(t, 2, cfg.Chemistry.MaxConcurrency)
	assert.Equal(t, 5*time.Second, cfg.PubChem.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FromFile_DefaultsFillGaps(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, DefaultPerturbationRounds, cfg.Chemistry.PerturbationRounds)
	assert.Equal(t, DefaultMaxOptimizeIters, cfg.Chemistry.MaxOptimizeIters)
	assert.Equal(t, DefaultMaxAtoms, cfg.Chemistry.MaxAtoms)
	assert.Equal(t, DefaultGRPCMaxRecvMsgSize, cfg.Server.GRPC.MaxRecvMsgSize)
	assert.Equal(t, DefaultPubChemMaxCandidates, cfg.PubChem.MaxCandidates)
	assert.Equal(t, DefaultReadTimeout, cfg.Server.HTTP.ReadTimeout)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_FromFile_ExplicitZeroPortFailsValidation(t *testing.T) {
	path := createTempConfigFile(t, `
server:
  http:
    port: 0
`)
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("MOLSCOUT_SERVER_HTTP_PORT", "9999")
	t.Setenv("MOLSCOUT_PUBCHEM_MAX_CANDIDATES", "4")
	t.Setenv("MOLSCOUT_CHEMISTRY_MAX_ATOMS", "64")

	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.HTTP.Port)
	assert.Equal(t, 4, cfg.PubChem.MaxCandidates)
	assert.Equal(t, 64, cfg.Chemistry.MaxAtoms)
}

func TestLoad_WithSearchPaths(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithSearchPaths(filepath.Dir(path)))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
}

func TestLoad_WithSearchPaths_NotFound(t *testing.T) {
	_, err := Load(WithSearchPaths(t.TempDir()))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_WithOverrides(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path), WithOverrides(map[string]interface{}{
		"server.http.port": 7777,
		"log.level":        "warn",
	}))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.HTTP.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFromFile_Convenience(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("MOLSCOUT_CORS_ALLOWED_ORIGIN", "https://app.example.org")
	t.Setenv("MOLSCOUT_RATELIMIT_ENABLED", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.org", cfg.CORS.AllowedOrigin)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTP.Port)
}

func TestMustLoad(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() { MustLoad(WithConfigPath(path)) })
	assert.Panics(t, func() { MustLoad(WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))) })
}

func TestLoad_SetsGlobalConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Same(t, cfg, Get())
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	var level atomic.Value
	require.NoError(t, Watch(path, func(c *Config) { level.Store(c.Log.Level) }, nil))

	updated := strings.Replace(validConfigYAML, "level: debug", "level: error", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "error"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTP.Port)
	assert.Equal(t, DefaultCORSOrigin, cfg.CORS.AllowedOrigin)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, DefaultPerturbationRounds, cfg.Chemistry.PerturbationRounds)
	assert.Equal(t, DefaultMaxAtoms, cfg.Chemistry.MaxAtoms)
	assert.True(t, cfg.Server.GRPC.Reflection)
	assert.Equal(t, DefaultGRPCMaxRecvMsgSize, cfg.Server.GRPC.MaxRecvMsgSize)
	assert.Equal(t, DefaultPubChemTimeout, cfg.PubChem.Timeout)
	assert.Equal(t, "molscout:", cfg.Redis.KeyPrefix)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
}
