// Package secretcache implements the shared refresh and retry protocol for
// cached secret state.
package secretcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// objectStrategy supplies the behavior that differs between cached secret
// metadata and cached secret versions: when the stored state goes stale,
// how to fetch it, and how to resolve a staging label against it.
type objectStrategy interface {
	// isStale reports whether the stored result is due for a periodic
	// refresh. It is consulted only when no fetch failure is pending and
	// no explicit refresh was requested.
	isStale(now time.Time) bool

	// executeRefresh performs the backend fetch and returns the object to
	// store.
	executeRefresh(ctx context.Context) (any, error)

	// resolveVersion resolves the requested staging label against the
	// stored state. A nil value with a nil error means the stage has no
	// matching version.
	resolveVersion(ctx context.Context, versionStage string) (*secretsmanager.GetSecretValueOutput, error)
}

// cacheObject holds the refresh/retry state shared by secret metadata and
// secret version entries. All state is guarded by mu; holding mu across
// the fetch guarantees at most one in-flight backend call per entry, so
// concurrent callers for the same secret never fan out duplicate requests.
type cacheObject struct {
	mu sync.Mutex

	opts     *cacheOptions
	client   SecretsManagerAPI
	secretID string
	strat    objectStrategy

	// result is the stored fetch result, possibly transformed by the
	// configured hook.
	result any

	// err is the failure recorded by the most recent fetch attempt, if
	// any. A successful fetch clears it.
	err error

	// errCount counts consecutive fetch failures and drives the
	// exponential backoff.
	errCount int

	// refreshNeeded forces a fetch on the next read regardless of timers.
	refreshNeeded bool

	// nextRetryTime is the earliest time another fetch may be attempted
	// after a failure.
	nextRetryTime time.Time
}

// isRefreshNeeded reports whether the next read must attempt a fetch:
// either an explicit refresh is pending, or the backoff window after a
// failure has elapsed, or the entry-specific staleness condition holds.
func (o *cacheObject) isRefreshNeeded(now time.Time) bool {
	if o.refreshNeeded {
		return true
	}
	if o.err != nil {
		if o.nextRetryTime.IsZero() {
			return false
		}
		return !o.nextRetryTime.After(now)
	}
	return o.strat.isStale(now)
}

// refresh runs one fetch attempt when due. On success the stored error
// state resets; on failure the previous result is retained and the next
// retry is scheduled with exponential backoff. Callers must hold mu.
func (o *cacheObject) refresh(ctx context.Context) {
	if !o.isRefreshNeeded(time.Now()) {
		return
	}
	o.refreshNeeded = false

	result, err := o.strat.executeRefresh(ctx)
	if err != nil {
		o.err = classifyFetchError(err, o.secretID)
		delay := o.retryDelay()
		o.errCount++
		o.nextRetryTime = time.Now().Add(delay)

		if o.opts.logger != nil {
			o.opts.logger.WarnContext(ctx, "secret refresh failed",
				"secret_id", o.secretID,
				"consecutive_failures", o.errCount,
				"retry_in", delay,
				"error", err)
		}
		return
	}

	o.setResult(result)
	o.err = nil
	o.errCount = 0

	if o.opts.logger != nil {
		o.opts.logger.DebugContext(ctx, "secret refreshed",
			"secret_id", o.secretID)
	}
}

// retryDelay computes the backoff delay for the current consecutive
// failure count: min(base * growth^count, max).
func (o *cacheObject) retryDelay() time.Duration {
	delay := o.opts.retryDelayBase
	for i := 0; i < o.errCount && delay < o.opts.retryDelayMax; i++ {
		delay *= time.Duration(o.opts.retryGrowthFactor)
	}
	if delay > o.opts.retryDelayMax {
		delay = o.opts.retryDelayMax
	}
	return delay
}

// getSecretValue serves the cached value for the requested staging label,
// refreshing first when due. A stale result is preferred over an error:
// the stored fetch failure is surfaced only when resolution yields nothing
// to serve. The returned value is a deep copy; callers cannot mutate
// cached state through it.
func (o *cacheObject) getSecretValue(ctx context.Context, versionStage string) (*secretsmanager.GetSecretValueOutput, error) {
	if versionStage == "" {
		versionStage = o.opts.versionStage
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.refresh(ctx)

	value, err := o.strat.resolveVersion(ctx, versionStage)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if o.err != nil {
			return nil, fmt.Errorf("refresh of secret %q failed: %w", o.secretID, o.err)
		}
		return nil, nil
	}

	return copySecretValue(value), nil
}

// refreshNow marks the entry so the next read forces a fetch attempt
// regardless of refresh and retry timers.
func (o *cacheObject) refreshNow() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshNeeded = true
}

// setResult stores the fetch result, applying the configured hook if any.
func (o *cacheObject) setResult(result any) {
	if o.opts.hook != nil {
		o.result = o.opts.hook.Put(result)
		return
	}
	o.result = result
}

// getResult loads the stored result, applying the configured hook if any.
func (o *cacheObject) getResult() any {
	if o.opts.hook != nil {
		return o.opts.hook.Get(o.result)
	}
	return o.result
}

// copySecretValue returns a deep copy of a secret version payload. The
// cache is the sole owner of canonical state; every value handed to a
// caller is private to that caller.
func copySecretValue(v *secretsmanager.GetSecretValueOutput) *secretsmanager.GetSecretValueOutput {
	if v == nil {
		return nil
	}

	out := &secretsmanager.GetSecretValueOutput{
		ARN:          copyString(v.ARN),
		CreatedDate:  copyTime(v.CreatedDate),
		Name:         copyString(v.Name),
		SecretString: copyString(v.SecretString),
		VersionId:    copyString(v.VersionId),
	}
	if v.SecretBinary != nil {
		out.SecretBinary = make([]byte, len(v.SecretBinary))
		copy(out.SecretBinary, v.SecretBinary)
	}
	if v.VersionStages != nil {
		out.VersionStages = make([]string, len(v.VersionStages))
		copy(out.VersionStages, v.VersionStages)
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
