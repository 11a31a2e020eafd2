// Package secretcache defines the interfaces consumed by the secret cache.
package secretcache

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client used by
// the cache. It abstracts the AWS SDK v2 client so tests can substitute
// mocks, and documents exactly which backend operations the cache depends
// on: metadata lookup and version retrieval.
//
// Implementations must be safe for concurrent invocation; the cache shares
// a single client across all entries and goroutines.
type SecretsManagerAPI interface {
	// DescribeSecret retrieves metadata about a secret, including the
	// mapping of version ids to staging labels, without exposing its value.
	DescribeSecret(
		ctx context.Context,
		params *secretsmanager.DescribeSecretInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.DescribeSecretOutput, error)

	// GetSecretValue retrieves the payload of one immutable secret version.
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// CacheHook allows callers to transform items as they move in and out of
// the in-memory cache, for example to encrypt cached values at rest in
// memory.
//
// Both methods are invoked while the owning cache entry's lock is held, so
// implementations must be fast, must not block, and must not call back into
// the cache.
type CacheHook interface {
	// Put prepares an object for storage in the cache.
	Put(obj any) any

	// Get derives the original object from its cached representation.
	Get(cached any) any
}
