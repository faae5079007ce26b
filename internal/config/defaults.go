package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHTTPHost           = "0.0.0.0"
	DefaultHTTPPort           = 8000
	DefaultGRPCPort           = 9090
	// DefaultGRPCMaxRecvMsgSize matches grpc-go's own limit.
	DefaultGRPCMaxRecvMsgSize = 4 << 20
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 60 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultMaxBodySize        = 1 << 20
	DefaultShutdownTimeout    = 15 * time.Second

	DefaultCORSOrigin = "http://localhost:3000"
	DefaultCORSMaxAge = 600

	DefaultPerturbationRounds = 10
	DefaultMaxOptimizeIters   = 50
	DefaultFingerprintRadius  = 2
	DefaultFingerprintBits    = 2048
	DefaultMaxAtoms           = 200

	DefaultPubChemBaseURL           = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultPubChemTimeout           = 10 * time.Second
	DefaultPubChemMaxCandidates     = 10
	DefaultPubChemLookupConcurrency = 4
	DefaultPubChemUserAgent         = "molscout/1.0"

	DefaultRateLimitBackend = "memory"
	DefaultRateLimitRPS     = 10.0
	DefaultRateLimitBurst   = 20
	DefaultRateLimitWindow  = time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisTimeout   = 3 * time.Second
	DefaultRedisKeyPrefix = "molscout:"

	DefaultMetricsNamespace = "molscout"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// NewDefaultConfig returns a Config populated entirely from defaults,
// including the boolean switches that ApplyDefaults cannot infer.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.GRPC.Enabled = true
	cfg.Server.GRPC.Reflection = true
	cfg.CORS.AllowCredentials = true
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields already set are left unchanged. Booleans are never touched because
// false is indistinguishable from unset.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.HTTP.Host == "" {
		cfg.Server.HTTP.Host = DefaultHTTPHost
	}
	if cfg.Server.HTTP.Port == 0 {
		cfg.Server.HTTP.Port = DefaultHTTPPort
	}
	if cfg.Server.HTTP.ReadTimeout == 0 {
		cfg.Server.HTTP.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.HTTP.WriteTimeout == 0 {
		cfg.Server.HTTP.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.HTTP.IdleTimeout == 0 {
		cfg.Server.HTTP.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.HTTP.MaxBodySize == 0 {
		cfg.Server.HTTP.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.GRPC.Port == 0 {
		cfg.Server.GRPC.Port = DefaultGRPCPort
	}
	if cfg.Server.GRPC.MaxRecvMsgSize == 0 {
		cfg.Server.GRPC.MaxRecvMsgSize = DefaultGRPCMaxRecvMsgSize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── CORS ──────────────────────────────────────────────────────────────────
	if cfg.CORS.AllowedOrigin == "" {
		cfg.CORS.AllowedOrigin = DefaultCORSOrigin
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = DefaultCORSMaxAge
	}

	// ── Chemistry ─────────────────────────────────────────────────────────────
	if cfg.Chemistry.PerturbationRounds == 0 {
		cfg.Chemistry.PerturbationRounds = DefaultPerturbationRounds
	}
	if cfg.Chemistry.MaxOptimizeIters == 0 {
		cfg.Chemistry.MaxOptimizeIters = DefaultMaxOptimizeIters
	}
	if cfg.Chemistry.FingerprintRadius == 0 {
		cfg.Chemistry.FingerprintRadius = DefaultFingerprintRadius
	}
	if cfg.Chemistry.FingerprintBits == 0 {
		cfg.Chemistry.FingerprintBits = DefaultFingerprintBits
	}
	if cfg.Chemistry.MaxAtoms == 0 {
		cfg.Chemistry.MaxAtoms = DefaultMaxAtoms
	}

	// ── PubChem ───────────────────────────────────────────────────────────────
	if cfg.PubChem.BaseURL == "" {
		cfg.PubChem.BaseURL = DefaultPubChemBaseURL
	}
	if cfg.PubChem.Timeout == 0 {
		cfg.PubChem.Timeout = DefaultPubChemTimeout
	}
	if cfg.PubChem.MaxCandidates == 0 {
		cfg.PubChem.MaxCandidates = DefaultPubChemMaxCandidates
	}
	if cfg.PubChem.LookupConcurrency == 0 {
		cfg.PubChem.LookupConcurrency = DefaultPubChemLookupConcurrency
	}
	if cfg.PubChem.UserAgent == "" {
		cfg.PubChem.UserAgent = DefaultPubChemUserAgent
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = DefaultRateLimitBackend
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
}

// registerDefaults seeds v with every default so that explicit zero values in
// a file are preserved (and rejected by Validate) and so that AutomaticEnv can
// resolve keys that appear in no file.
func registerDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("server.http.host", d.Server.HTTP.Host)
	v.SetDefault("server.http.port", d.Server.HTTP.Port)
	v.SetDefault("server.http.read_timeout", d.Server.HTTP.ReadTimeout)
	v.SetDefault("server.http.write_timeout", d.Server.HTTP.WriteTimeout)
	v.SetDefault("server.http.idle_timeout", d.Server.HTTP.IdleTimeout)
	v.SetDefault("server.http.max_body_size", d.Server.HTTP.MaxBodySize)
	v.SetDefault("server.grpc.enabled", d.Server.GRPC.Enabled)
	v.SetDefault("server.grpc.port", d.Server.GRPC.Port)
	v.SetDefault("server.grpc.reflection", d.Server.GRPC.Reflection)
	v.SetDefault("server.grpc.max_recv_msg_size", d.Server.GRPC.MaxRecvMsgSize)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("cors.allowed_origin", d.CORS.AllowedOrigin)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	v.SetDefault("chemistry.perturbation_rounds", d.Chemistry.PerturbationRounds)
	v.SetDefault("chemistry.max_optimize_iters", d.Chemistry.MaxOptimizeIters)
	v.SetDefault("chemistry.fingerprint_radius", d.Chemistry.FingerprintRadius)
	v.SetDefault("chemistry.fingerprint_bits", d.Chemistry.FingerprintBits)
	v.SetDefault("chemistry.max_atoms", d.Chemistry.MaxAtoms)
	v.SetDefault("chemistry.max_concurrency", d.Chemistry.MaxConcurrency)

	v.SetDefault("pubchem.base_url", d.PubChem.BaseURL)
	v.SetDefault("pubchem.timeout", d.PubChem.Timeout)
	v.SetDefault("pubchem.max_candidates", d.PubChem.MaxCandidates)
	v.SetDefault("pubchem.lookup_concurrency", d.PubChem.LookupConcurrency)
	v.SetDefault("pubchem.user_agent", d.PubChem.UserAgent)

	v.SetDefault("ratelimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output_paths", d.Log.OutputPaths)
}
