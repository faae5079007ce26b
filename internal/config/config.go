// Package config defines molscout's configuration structures and their
// validation. Loading lives in loader.go and defaults in defaults.go.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// HTTPConfig holds the REST listener tunables.
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodySize  int64         `mapstructure:"max_body_size"`
}

// GRPCConfig holds the gRPC health listener tunables.
type GRPCConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	Port           int  `mapstructure:"port"`
	Reflection     bool `mapstructure:"reflection"`
	MaxRecvMsgSize int  `mapstructure:"max_recv_msg_size"`
}

// ServerConfig groups the network listeners.
type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CORSConfig controls the single browser origin allowed to call the API.
type CORSConfig struct {
	AllowedOrigin    string `mapstructure:"allowed_origin"`
	AllowCredentials bool   `mapstructure:"allow_credentials"`
	MaxAge           int    `mapstructure:"max_age"`
}

// ChemistryConfig tunes the in-process cheminformatics toolkit.
type ChemistryConfig struct {
	PerturbationRounds int `mapstructure:"perturbation_rounds"`
	MaxOptimizeIters   int `mapstructure:"max_optimize_iters"`
	FingerprintRadius  int `mapstructure:"fingerprint_radius"`
	FingerprintBits    int `mapstructure:"fingerprint_bits"`
	// MaxAtoms rejects generate_similar inputs with more parsed atoms.
	MaxAtoms int `mapstructure:"max_atoms"`
	// MaxConcurrency bounds concurrent CPU-bound chemistry jobs. 0 means
	// GOMAXPROCS.
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// PubChemConfig configures the PUG REST client.
type PubChemConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxCandidates     int           `mapstructure:"max_candidates"`
	LookupConcurrency int           `mapstructure:"lookup_concurrency"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Backend           string        `mapstructure:"backend"` // "memory" | "redis"
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
}

// RedisConfig holds Redis connection parameters, used by the redis rate
// limiter backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Chemistry ChemistryConfig `mapstructure:"chemistry"`
	PubChem   PubChemConfig   `mapstructure:"pubchem"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation and returns the first problem found.
func (c *Config) Validate() error {
	if err := validatePort("server.http.port", c.Server.HTTP.Port); err != nil {
		return err
	}
	if c.Server.GRPC.Enabled {
		if err := validatePort("server.grpc.port", c.Server.GRPC.Port); err != nil {
			return err
		}
		if c.Server.GRPC.Port == c.Server.HTTP.Port {
			return fmt.Errorf("config: server.grpc.port must differ from server.http.port")
		}
		if c.Server.GRPC.MaxRecvMsgSize < 0 {
			return fmt.Errorf("config: server.grpc.max_recv_msg_size must be ≥ 0, got %d", c.Server.GRPC.MaxRecvMsgSize)
		}
	}
	if c.Server.HTTP.MaxBodySize < 0 {
		return fmt.Errorf("config: server.http.max_body_size must be ≥ 0, got %d", c.Server.HTTP.MaxBodySize)
	}

	// CORS
	if c.CORS.AllowedOrigin == "" {
		return fmt.Errorf("config: cors.allowed_origin is required")
	}
	if c.CORS.AllowedOrigin == "*" && c.CORS.AllowCredentials {
		return fmt.Errorf("config: cors.allowed_origin cannot be * when credentials are allowed")
	}

	// Chemistry
	if c.Chemistry.PerturbationRounds < 1 {
		return fmt.Errorf("config: chemistry.perturbation_rounds must be ≥ 1, got %d", c.Chemistry.PerturbationRounds)
	}
	if c.Chemistry.MaxOptimizeIters < 1 {
		return fmt.Errorf("config: chemistry.max_optimize_iters must be ≥ 1, got %d", c.Chemistry.MaxOptimizeIters)
	}
	if c.Chemistry.FingerprintRadius < 0 || c.Chemistry.FingerprintRadius > 6 {
		return fmt.Errorf("config: chemistry.fingerprint_radius %d is out of range [0, 6]", c.Chemistry.FingerprintRadius)
	}
	if c.Chemistry.FingerprintBits < 64 || c.Chemistry.FingerprintBits%8 != 0 {
		return fmt.Errorf("config: chemistry.fingerprint_bits must be a multiple of 8 and ≥ 64, got %d", c.Chemistry.FingerprintBits)
	}
	if c.Chemistry.MaxAtoms < 1 {
		return fmt.Errorf("config: chemistry.max_atoms must be ≥ 1, got %d", c.Chemistry.MaxAtoms)
	}
	if c.Chemistry.MaxConcurrency < 0 {
		return fmt.Errorf("config: chemistry.max_concurrency must be ≥ 0, got %d", c.Chemistry.MaxConcurrency)
	}

	// PubChem
	u, err := url.Parse(c.PubChem.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: pubchem.base_url %q must be an absolute http(s) URL", c.PubChem.BaseURL)
	}
	if c.PubChem.Timeout <= 0 {
		return fmt.Errorf("config: pubchem.timeout must be positive")
	}
	if c.PubChem.MaxCandidates < 1 {
		return fmt.Errorf("config: pubchem.max_candidates must be ≥ 1, got %d", c.PubChem.MaxCandidates)
	}
	if c.PubChem.LookupConcurrency < 1 {
		return fmt.Errorf("config: pubchem.lookup_concurrency must be ≥ 1, got %d", c.PubChem.LookupConcurrency)
	}

	// Rate limit
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.Redis.Addr == "" {
				return fmt.Errorf("config: redis.addr is required when ratelimit.backend is redis")
			}
		default:
			return fmt.Errorf("config: ratelimit.backend %q is invalid; expected memory|redis", c.RateLimit.Backend)
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: ratelimit.requests_per_second must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("config: ratelimit.burst must be ≥ 1, got %d", c.RateLimit.Burst)
		}
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("config: %s %d is out of range [1, 65535]", key, port)
	}
	return nil
}
