package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molscout/pkg/errors"
	"github.com/turtacn/molscout/pkg/types/common"
)

// RateLimiter decides whether the request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, RateLimitInfo, error)
}

// RateLimitInfo contains current rate limit state for a given key.
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed per window.
	Limit int
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the time when the rate limit window resets.
	ResetAt time.Time
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// Backend labels the rejection metric ("memory" or "redis").
	Backend string
	// KeyFunc extracts the rate limit key; defaults to the client IP.
	KeyFunc func(r *http.Request) string
	// SkipPaths bypass rate limiting.
	SkipPaths []string
	Logger    logging.Logger
	Metrics   *prometheus.AppMetrics
}

// DefaultRateLimitConfig returns the configuration used by the server.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Backend:   "memory",
		KeyFunc:   defaultKeyFunc,
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}
}

// defaultKeyFunc keys on the remote host. chimw.RealIP has already rewritten
// RemoteAddr from X-Forwarded-For / X-Real-IP when present.
func defaultKeyFunc(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// --- Token Bucket Limiter ---

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// TokenBucketLimiter implements RateLimiter in process memory. Limits are
// per replica.
type TokenBucketLimiter struct {
	rate            float64
	burstSize       int
	buckets         map[string]*tokenBucket
	mu              sync.RWMutex
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewTokenBucketLimiter creates a limiter refilling rate tokens per second
// up to burstSize. A positive cleanupInterval starts a janitor goroutine;
// call Stop to end it.
func NewTokenBucketLimiter(rate float64, burstSize int, cleanupInterval time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		rate:            rate,
		burstSize:       burstSize,
		buckets:         make(map[string]*tokenBucket),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow takes one token from key's bucket. It never returns an error.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (bool, RateLimitInfo, error) {
	now := l.now()

	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		bucket, exists = l.buckets[key]
		if !exists {
			bucket = &tokenBucket{
				tokens:     float64(l.burstSize),
				lastRefill: now,
			}
			l.buckets[key] = bucket
		}
		l.mu.Unlock()
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens = math.Min(bucket.tokens+elapsed*l.rate, float64(l.burstSize))
	bucket.lastRefill = now

	info := RateLimitInfo{Limit: l.burstSize}
	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		info.Remaining = int(bucket.tokens)
		info.ResetAt = now.Add(time.Duration((float64(l.burstSize) - bucket.tokens) / l.rate * float64(time.Second)))
		return true, info, nil
	}

	info.ResetAt = now.Add(time.Duration((1.0 - bucket.tokens) / l.rate * float64(time.Second)))
	return false, info, nil
}

func (l *TokenBucketLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets idle for longer than the cleanup interval.
func (l *TokenBucketLimiter) cleanup() {
	threshold := l.now().Add(-l.cleanupInterval)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		if bucket.lastRefill.Before(threshold) {
			delete(l.buckets, key)
		}
		bucket.mu.Unlock()
	}
}

// Stop ends the janitor goroutine. It is safe to call more than once.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// BucketCount returns the number of tracked keys.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// --- Fixed Window Limiter ---

// WindowCounter counts hits in a fixed window shared across replicas. The
// redis client implements it.
type WindowCounter interface {
	HitWindow(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// FixedWindowLimiter allows limit requests per window and key.
type FixedWindowLimiter struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewFixedWindowLimiter builds a limiter over counter.
func NewFixedWindowLimiter(counter WindowCounter, limit int, window time.Duration) *FixedWindowLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &FixedWindowLimiter{counter: counter, limit: limit, window: window, now: time.Now}
}

// Allow counts the request against key's current window.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, RateLimitInfo, error) {
	n, resetIn, err := l.counter.HitWindow(ctx, key, l.window)
	if err != nil {
		return false, RateLimitInfo{}, err
	}
	info := RateLimitInfo{
		Limit:     l.limit,
		Remaining: l.limit - int(n),
		ResetAt:   l.now().Add(resetIn),
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	return n <= int64(l.limit), info, nil
}

// --- Middleware ---

// RateLimit returns middleware that enforces limiter. Limiter errors fail
// open: the request proceeds and the error is logged.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = defaultKeyFunc
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = prometheus.NewNoopMetrics()
	}
	backend := config.Backend
	if backend == "" {
		backend = "memory"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipSet[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			allowed, info, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logging.FromContext(r.Context(), logger).Warn("rate limiter unavailable, allowing request",
					logging.String("backend", backend), logging.Err(err))
				metrics.RecordError("ratelimit", errors.GetCode(err).String())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := math.Ceil(time.Until(info.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
				metrics.RateLimitRejectedTotal.WithLabelValues(backend).Inc()

				body := common.NewErrorDetail(errors.CodeRateLimit.String(), errors.DefaultMessageForCode(errors.CodeRateLimit))
				body.RequestID = logging.RequestIDFrom(r.Context())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
