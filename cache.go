// Package secretcache provides the client-side cache for AWS Secrets
// Manager secrets.
package secretcache

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Identifies cache traffic in the AWS user agent alongside the SDK product.
const (
	userAgentProduct = "AwsSecretCache"
	cacheVersion     = "1.0.0"
)

// Cache is a client-side, in-process cache for AWS Secrets Manager
// secrets. It keeps recently used secrets in a bounded LRU and refreshes
// cached metadata on a jittered interval, cutting the request rate and
// rate-limit pressure of applications that read secrets repeatedly.
//
// Thread Safety: all methods are safe for concurrent use by multiple
// goroutines. Concurrent reads of the same secret are serialized per
// entry, so a hot secret is fetched from the backend at most once at a
// time.
type Cache struct {
	// client is the shared Secrets Manager client (must be thread-safe)
	client SecretsManagerAPI

	// opts is the immutable cache configuration
	opts *cacheOptions

	// items is the top-level LRU of cached secrets keyed by secret id
	items *LRUCache[string, *secretCacheItem]
}

// New creates a secret cache backed by a Secrets Manager client built from
// the default AWS configuration. The context is used for AWS configuration
// loading and should not be nil.
//
// Example usage:
//
//	ctx := context.Background()
//	cache, err := secretcache.New(ctx,
//	    secretcache.WithMaxCacheSize(256),
//	    secretcache.WithLogger(slog.Default()),
//	)
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithConfig(ctx, &cfg, opts...)
}

// NewWithConfig creates a secret cache backed by a Secrets Manager client
// built from a custom AWS configuration. This is useful for testing with
// LocalStack or other custom AWS endpoints.
func NewWithConfig(ctx context.Context, cfg *aws.Config, opts ...Option) (*Cache, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("config region cannot be empty")
	}

	api := secretsmanager.NewFromConfig(*cfg, func(o *secretsmanager.Options) {
		o.APIOptions = append(o.APIOptions,
			awsmiddleware.AddUserAgentKeyValue(userAgentProduct, cacheVersion))
	})

	return NewWithClient(api, opts...)
}

// NewWithClient creates a secret cache around an existing Secrets Manager
// client. The client is shared across all cache entries and must be safe
// for concurrent use; AWS SDK v2 clients are.
//
// Construction performs no network calls; secrets are fetched lazily on
// first read.
func NewWithClient(client SecretsManagerAPI, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}

	options := defaultCacheOptions()
	applyOptions(options, opts)
	if err := options.validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	return &Cache{
		client: client,
		opts:   options,
		items:  NewLRUCache[string, *secretCacheItem](options.maxCacheSize),
	}, nil
}

// GetSecretString returns the string value of the secret under the
// configured default version stage.
func (c *Cache) GetSecretString(ctx context.Context, secretID string) (string, error) {
	return c.GetSecretStringWithStage(ctx, secretID, "")
}

// GetSecretStringWithStage returns the string value of the secret version
// carrying the given staging label. An empty stage requests the configured
// default.
//
// The value is served from the cache when fresh enough; otherwise it is
// fetched and cached. A previously cached value is still served if a
// refresh attempt fails. ErrVersionNotFound is returned when no version
// carries the stage; ErrSecretEmpty when the version has no string value.
func (c *Cache) GetSecretStringWithStage(ctx context.Context, secretID, versionStage string) (string, error) {
	value, err := c.getSecretValue(ctx, secretID, versionStage)
	if err != nil {
		return "", err
	}
	if value.SecretString == nil {
		return "", fmt.Errorf("%w: secret %q has no string value", ErrSecretEmpty, secretID)
	}
	return *value.SecretString, nil
}

// GetSecretBinary returns the binary value of the secret under the
// configured default version stage.
func (c *Cache) GetSecretBinary(ctx context.Context, secretID string) ([]byte, error) {
	return c.GetSecretBinaryWithStage(ctx, secretID, "")
}

// GetSecretBinaryWithStage returns the binary value of the secret version
// carrying the given staging label. An empty stage requests the configured
// default. The returned slice is a private copy; mutating it does not
// affect the cache.
func (c *Cache) GetSecretBinaryWithStage(ctx context.Context, secretID, versionStage string) ([]byte, error) {
	value, err := c.getSecretValue(ctx, secretID, versionStage)
	if err != nil {
		return nil, err
	}
	if value.SecretBinary == nil {
		return nil, fmt.Errorf("%w: secret %q has no binary value", ErrSecretEmpty, secretID)
	}
	return value.SecretBinary, nil
}

// RefreshNow marks the secret so its next read forces a metadata fetch,
// bypassing the refresh interval and any retry backoff. It performs no
// network call itself.
func (c *Cache) RefreshNow(secretID string) {
	if secretID == "" {
		return
	}
	c.cachedSecret(secretID).refreshNow()

	if c.opts.logger != nil {
		c.opts.logger.Info("secret refresh forced", "secret_id", secretID)
	}
}

// getSecretValue fetches the resolved version payload for the secret,
// turning the "no such version" outcome into ErrVersionNotFound.
func (c *Cache) getSecretValue(ctx context.Context, secretID, versionStage string) (*secretsmanager.GetSecretValueOutput, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if secretID == "" {
		return nil, fmt.Errorf("secret id cannot be empty")
	}

	value, err := c.cachedSecret(secretID).getSecretValue(ctx, versionStage)
	if err != nil {
		return nil, err
	}
	if value == nil {
		stage := versionStage
		if stage == "" {
			stage = c.opts.versionStage
		}
		return nil, fmt.Errorf("%w: secret %q stage %q", ErrVersionNotFound, secretID, stage)
	}
	return value, nil
}

// cachedSecret returns the cache entry for the secret id, creating and
// inserting one on first use. Creation is cheap and performs no network
// I/O, so it happens under the LRU lock only, never holding any entry
// lock. With a cache size of 0 the entry is evicted immediately; reads
// then work on a throwaway entry and always hit the backend.
func (c *Cache) cachedSecret(secretID string) *secretCacheItem {
	if item, ok := c.items.Get(secretID); ok {
		return item
	}
	c.items.PutIfAbsent(secretID, newSecretCacheItem(c.opts, c.client, secretID))
	item, ok := c.items.Get(secretID)
	if !ok {
		return newSecretCacheItem(c.opts, c.client, secretID)
	}
	return item
}
