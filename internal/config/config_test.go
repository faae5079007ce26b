package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molscout/internal/config"
)

func validConfig() *config.Config {
	return config.NewDefaultConfig()
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_InvalidHTTPPort(t *testing.T) {
	t.Parallel()
	for _, p := range []int{0, -1, 65536, 100000} {
		cfg := validConfig()
		cfg.Server.HTTP.Port = p
		err := cfg.Validate()
		require.Error(t, err, "port %d", p)
		assert.Contains(t, err.Error(), "server.http.port")
	}
}

func TestConfig_Validate_GRPCPortClash(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.GRPC.Port = cfg.Server.HTTP.Port
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.grpc.port")

	cfg.Server.GRPC.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty origin", func(c *config.Config) { c.CORS.AllowedOrigin = "" }, "cors.allowed_origin"},
		{"wildcard with credentials", func(c *config.Config) { c.CORS.AllowedOrigin = "*" }, "cors.allowed_origin"},
		{"zero rounds", func(c *config.Config) { c.Chemistry.PerturbationRounds = 0 }, "chemistry.perturbation_rounds"},
		{"zero optimize iters", func(c *config.Config) { c.Chemistry.MaxOptimizeIters = 0 }, "chemistry.max_optimize_iters"},
		{"radius too large", func(c *config.Config) { c.Chemistry.FingerprintRadius = 9 }, "chemistry.fingerprint_radius"},
		{"odd bits", func(c *config.Config) { c.Chemistry.FingerprintBits = 1001 }, "chemistry.fingerprint_bits"},
		{"negative concurrency", func(c *config.Config) { c.Chemistry.MaxConcurrency = -1 }, "chemistry.max_concurrency"},
		{"negative grpc message size", func(c *config.Config) { c.Server.GRPC.MaxRecvMsgSize = -1 }, "server.grpc.max_recv_msg_size"},
		{"negative max atoms", func(c *config.Config) { c.Chemistry.MaxAtoms = -5 }, "chemistry.max_atoms"},
		{"relative base url", func(c *config.Config) { c.PubChem.BaseURL = "/rest/pug" }, "pubchem.base_url"},
		{"ftp base url", func(c *config.Config) { c.PubChem.BaseURL = "ftp://example.org" }, "pubchem.base_url"},
		{"zero timeout", func(c *config.Config) { c.PubChem.Timeout = 0 }, "pubchem.timeout"},
		{"zero candidates", func(c *config.Config) { c.PubChem.MaxCandidates = 0 }, "pubchem.max_candidates"},
		{"zero lookup concurrency", func(c *config.Config) { c.PubChem.LookupConcurrency = 0 }, "pubchem.lookup_concurrency"},
		{"unknown backend", func(c *config.Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.Backend = "memcached"
		}, "ratelimit.backend"},
		{"redis backend without addr", func(c *config.Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.Backend = "redis"
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"zero rps", func(c *config.Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerSecond = 0
		}, "ratelimit.requests_per_second"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_RateLimitDisabledSkipsChecks(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.RateLimit.Backend = "bogus"
	cfg.RateLimit.RequestsPerSecond = 0
	assert.NoError(t, cfg.Validate())
}

func TestNewDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	assert.Equal(t, "http://localhost:3000", cfg.CORS.AllowedOrigin)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 10, cfg.Chemistry.PerturbationRounds)
	assert.Equal(t, 50, cfg.Chemistry.MaxOptimizeIters)
	assert.Equal(t, 2, cfg.Chemistry.FingerprintRadius)
	assert.Equal(t, 2048, cfg.Chemistry.FingerprintBits)
	assert.Equal(t, 200, cfg.Chemistry.MaxAtoms)
	assert.True(t, cfg.Server.GRPC.Reflection)
	assert.Equal(t, 4*1024*1024, cfg.Server.GRPC.MaxRecvMsgSize)
	assert.Equal(t, "https://pubchem.ncbi.nlm.nih.gov/rest/pug", cfg.PubChem.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.PubChem.Timeout)
	assert.Equal(t, 10, cfg.PubChem.MaxCandidates)
	assert.False(t, cfg.RateLimit.Enabled)
}
