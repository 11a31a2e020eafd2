// Package secretcache provides a client-side, in-process cache for AWS
// Secrets Manager secrets, reducing the network round trips and rate-limit
// pressure of applications that read secrets repeatedly.
//
// The cache keeps recently used secrets in a bounded LRU. Secret metadata
// is refreshed on a jittered interval; version payloads are immutable and
// fetched once. Failed fetches are retried with exponential backoff while
// previously cached values keep being served.
//
//   - Simple read surface: GetSecretString, GetSecretBinary, and the
//     WithStage variants for explicit staging labels
//   - Forced refresh via RefreshNow for secrets known to have rotated
//   - Pluggable in-memory transformation of cached values via CacheHook
//   - Functional options for cache size, refresh interval, backoff, and
//     logging
//
// # Security considerations
//
//   - The package never logs secret values; only secret ids and operation
//     metadata
//   - Returned values are private deep copies, so callers cannot mutate
//     cached state
//   - Typed errors (ErrSecretNotFound, ErrVersionNotFound, ErrSecretEmpty,
//     ErrAccessDenied) avoid leaking sensitive details while remaining
//     actionable
//   - Required IAM permissions: secretsmanager:DescribeSecret and
//     secretsmanager:GetSecretValue, plus kms:Decrypt for secrets encrypted
//     with customer-managed KMS keys
//
// # Thread safety
//
// All exported methods are safe for concurrent use by multiple goroutines.
// Each cache level and each cached entry carries its own mutex; reads of
// the same secret are serialized per entry, so a hot secret is fetched
// from the backend at most once at a time, while reads of different
// secrets proceed independently.
//
// # Usage
//
// See the package examples for basic usage, staging labels, forced
// refresh, and hook configuration.
package secretcache
