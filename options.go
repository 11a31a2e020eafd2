// Package secretcache provides functional options for configuring the cache.
package secretcache

import (
	"fmt"
	"log/slog"
	"time"
)

// Configuration defaults. These mirror the behavior of the AWS caching
// client libraries for other runtimes.
const (
	// defaultMaxCacheSize is the maximum number of secrets kept in the
	// top-level cache.
	defaultMaxCacheSize = 1024

	// defaultRetryDelayBase is the delay before the first retry after a
	// failed refresh.
	defaultRetryDelayBase = time.Second

	// defaultRetryGrowthFactor is the multiplier applied to the retry
	// delay for each consecutive failure.
	defaultRetryGrowthFactor = 2

	// defaultRetryDelayMax caps the delay between failed refresh attempts.
	defaultRetryDelayMax = time.Hour

	// defaultVersionStage is the staging label requested when the caller
	// does not specify one.
	defaultVersionStage = "AWSCURRENT"

	// defaultRefreshInterval bounds how long cached secret metadata is
	// served before being refreshed.
	defaultRefreshInterval = time.Hour

	// versionCacheSize bounds the number of versions cached per secret.
	versionCacheSize = 10
)

// cacheOptions holds the immutable configuration shared by every cache
// entry. It is fixed at construction time and read-only afterwards.
type cacheOptions struct {
	maxCacheSize      int
	retryDelayBase    time.Duration
	retryGrowthFactor int
	retryDelayMax     time.Duration
	versionStage      string
	refreshInterval   time.Duration
	hook              CacheHook
	logger            *slog.Logger
}

// Option is a functional option for configuring the Cache.
type Option func(*cacheOptions)

// WithMaxCacheSize sets the maximum number of secrets to cache. A size of
// 0 disables caching entirely: every read fetches from the backend.
func WithMaxCacheSize(size int) Option {
	return func(opts *cacheOptions) {
		opts.maxCacheSize = size
	}
}

// WithRetryDelayBase sets the delay before retrying a refresh after the
// first consecutive failure.
func WithRetryDelayBase(delay time.Duration) Option {
	return func(opts *cacheOptions) {
		opts.retryDelayBase = delay
	}
}

// WithRetryGrowthFactor sets the multiplier applied to the retry delay for
// each consecutive refresh failure.
func WithRetryGrowthFactor(factor int) Option {
	return func(opts *cacheOptions) {
		opts.retryGrowthFactor = factor
	}
}

// WithRetryDelayMax caps the delay between retries of failed refreshes.
func WithRetryDelayMax(delay time.Duration) Option {
	return func(opts *cacheOptions) {
		opts.retryDelayMax = delay
	}
}

// WithDefaultVersionStage sets the staging label requested when callers do
// not specify one.
func WithDefaultVersionStage(stage string) Option {
	return func(opts *cacheOptions) {
		opts.versionStage = stage
	}
}

// WithSecretRefreshInterval sets how long cached secret metadata is served
// before a refresh is scheduled. The actual refresh time is drawn
// uniformly from [interval/2, interval] to avoid synchronized refresh
// storms across processes.
func WithSecretRefreshInterval(interval time.Duration) Option {
	return func(opts *cacheOptions) {
		opts.refreshInterval = interval
	}
}

// WithCacheHook installs a hook transforming values as they are stored in
// and loaded from the in-memory cache. See CacheHook for the constraints
// hook implementations must satisfy.
func WithCacheHook(hook CacheHook) Option {
	return func(opts *cacheOptions) {
		opts.hook = hook
	}
}

// WithLogger configures the cache with a structured logger. If logger is
// nil, logging is disabled. Secret values are never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *cacheOptions) {
		opts.logger = logger
	}
}

// defaultCacheOptions returns the default configuration.
func defaultCacheOptions() *cacheOptions {
	return &cacheOptions{
		maxCacheSize:      defaultMaxCacheSize,
		retryDelayBase:    defaultRetryDelayBase,
		retryGrowthFactor: defaultRetryGrowthFactor,
		retryDelayMax:     defaultRetryDelayMax,
		versionStage:      defaultVersionStage,
		refreshInterval:   defaultRefreshInterval,
	}
}

// applyOptions applies the given options to the cache options.
func applyOptions(opts *cacheOptions, options []Option) {
	for _, option := range options {
		option(opts)
	}
}

// validate rejects configurations that would break the refresh protocol.
// Construction fails immediately on the first invalid value.
func (o *cacheOptions) validate() error {
	if o.maxCacheSize < 0 {
		return fmt.Errorf("max cache size cannot be negative: %d", o.maxCacheSize)
	}
	if o.retryDelayBase <= 0 {
		return fmt.Errorf("retry delay base must be positive: %s", o.retryDelayBase)
	}
	if o.retryGrowthFactor < 1 {
		return fmt.Errorf("retry growth factor must be at least 1: %d", o.retryGrowthFactor)
	}
	if o.retryDelayMax < o.retryDelayBase {
		return fmt.Errorf("retry delay max %s is below retry delay base %s",
			o.retryDelayMax, o.retryDelayBase)
	}
	if o.versionStage == "" {
		return fmt.Errorf("default version stage cannot be empty")
	}
	if o.refreshInterval <= 0 {
		return fmt.Errorf("secret refresh interval must be positive: %s", o.refreshInterval)
	}
	return nil
}
