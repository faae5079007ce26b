package bootstrap

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molscout/internal/config"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/internal/testutil"
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Server.HTTP.Host = "127.0.0.1"
	cfg.Server.HTTP.Port = 0
	cfg.Server.GRPC.Port = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.RateLimit.Enabled = false
	return cfg
}

func TestWindowLimit(t *testing.T) {
	assert.Equal(t, 10, WindowLimit(10, time.Second))
	assert.Equal(t, 600, WindowLimit(10, time.Minute))
	assert.Equal(t, 2, WindowLimit(1.5, time.Second))
	assert.Equal(t, 1, WindowLimit(0.01, time.Second))
	assert.Equal(t, 1, WindowLimit(0, time.Second))
}

func TestCORSConfig(t *testing.T) {
	c := CORSConfig(config.CORSConfig{AllowedOrigin: "https://app.example.com", AllowCredentials: false, MaxAge: 30})
	assert.Equal(t, []string{"https://app.example.com"}, c.AllowedOrigins)
	assert.False(t, c.AllowCredentials)
	assert.Equal(t, 30, c.MaxAge)

	d := CORSConfig(config.CORSConfig{AllowCredentials: true})
	assert.Equal(t, []string{"http://localhost:3000"}, d.AllowedOrigins)
	assert.True(t, d.AllowCredentials)
}

func TestNewMetrics_Disabled(t *testing.T) {
	m, h, err := NewMetrics(config.MetricsConfig{Enabled: false}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Nil(t, h)
}

func TestNewMetrics_RequiresNamespace(t *testing.T) {
	_, _, err := NewMetrics(config.MetricsConfig{Enabled: true}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewRateLimit_Disabled(t *testing.T) {
	rl, err := NewRateLimit(context.Background(), testConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, rl)
}

func TestNewRateLimit_Memory(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = "memory"
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	rl, err := NewRateLimit(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, rl)
	defer rl.Close()

	assert.Equal(t, "memory", rl.Backend)
	assert.Nil(t, rl.Checker)

	ok, _, err := rl.Limiter.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _, err = rl.Limiter.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = "redis"
	cfg.RateLimit.RequestsPerSecond = 2
	cfg.RateLimit.Window = time.Second
	cfg.Redis.Addr = mr.Addr()

	rl, err := NewRateLimit(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, rl)
	defer rl.Close()

	assert.Equal(t, "redis", rl.Backend)
	require.NotNil(t, rl.Checker)
	assert.Equal(t, "redis", rl.Checker.Name())
	assert.NoError(t, rl.Checker.Check(context.Background()))

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Limiter.Allow(context.Background(), "client")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _, err := rl.Limiter.Allow(context.Background(), "client")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRateLimit_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	_, err := NewRateLimit(context.Background(), cfg, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewRateLimit_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = "memcached"

	_, err := NewRateLimit(context.Background(), cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestNew_GRPCDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.GRPC.Enabled = false

	app, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.GRPC)
	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Handler)
}

func TestApp_RunServesAndShutsDown(t *testing.T) {
	logger := testutil.NewMockLogger()
	app, err := New(context.Background(), testConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, app.GRPC)
	require.NoError(t, app.HTTP.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	base := "http://" + app.HTTP.Addr()
	resp, err := http.Post(base+"/search_commercial", "application/json", strings.NewReader(`{"smiles":"CCO"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"smiles":"CCO","similarity":0.8},{"smiles":"CCCO","similarity":0.7},{"smiles":"CCCCO","similarity":0.6}]`, string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "molscout_http_requests_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, logger.HasMessage("info", "shutting down"))

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestNewLogger_EmptyOutputPaths(t *testing.T) {
	l, err := NewLogger(config.LogConfig{Level: "debug", Format: "json", OutputPaths: []string{}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
