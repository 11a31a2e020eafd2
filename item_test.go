// Package secretcache provides tests for the per-secret refresh and retry
// state machine.
package secretcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheObject_RetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		growth   int
		max      time.Duration
		errCount int
		want     time.Duration
	}{
		{
			name:     "first failure uses base delay",
			base:     time.Millisecond,
			growth:   2,
			max:      time.Hour,
			errCount: 0,
			want:     time.Millisecond,
		},
		{
			name:     "second failure doubles",
			base:     time.Millisecond,
			growth:   2,
			max:      time.Hour,
			errCount: 1,
			want:     2 * time.Millisecond,
		},
		{
			name:     "tenth failure grows exponentially",
			base:     time.Millisecond,
			growth:   2,
			max:      time.Hour,
			errCount: 9,
			want:     512 * time.Millisecond,
		},
		{
			name:     "delay capped at max",
			base:     time.Millisecond,
			growth:   2,
			max:      100 * time.Millisecond,
			errCount: 20,
			want:     100 * time.Millisecond,
		},
		{
			name:     "growth factor one keeps base",
			base:     time.Second,
			growth:   1,
			max:      time.Hour,
			errCount: 5,
			want:     time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := &cacheObject{
				opts: &cacheOptions{
					retryDelayBase:    tt.base,
					retryGrowthFactor: tt.growth,
					retryDelayMax:     tt.max,
				},
				errCount: tt.errCount,
			}

			assert.Equal(t, tt.want, obj.retryDelay())
		})
	}
}

func TestSecretCacheItem_BackoffSchedule(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	api := &mockSecretsManagerAPI{
		describeSecretFunc: func(context.Context, *secretsmanager.DescribeSecretInput, ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, boom
		},
	}

	opts := defaultCacheOptions()
	opts.retryDelayBase = time.Millisecond
	opts.retryGrowthFactor = 2
	opts.retryDelayMax = time.Hour
	item := newSecretCacheItem(opts, api, "id")

	for n := 1; n <= 5; n++ {
		before := time.Now()
		_, err := item.getSecretValue(ctx, "")
		after := time.Now()
		require.Error(t, err)

		// Nth failure schedules the retry base*2^(N-1) out.
		wantDelay := time.Millisecond << (n - 1)
		assert.Equal(t, n, item.errCount)
		assert.False(t, item.nextRetryTime.Before(before.Add(wantDelay)),
			"retry %d scheduled too early", n)
		assert.False(t, item.nextRetryTime.After(after.Add(wantDelay)),
			"retry %d scheduled too late", n)

		// The next attempt is gated until the backoff window elapses.
		item.refreshNow()
	}

	assert.Equal(t, int64(5), api.describeCalls.Load())
}

func TestSecretCacheItem_BackoffGatesRetries(t *testing.T) {
	ctx := context.Background()
	api := &mockSecretsManagerAPI{
		describeSecretFunc: func(context.Context, *secretsmanager.DescribeSecretInput, ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, errors.New("backend down")
		},
	}

	opts := defaultCacheOptions()
	opts.retryDelayBase = time.Hour
	item := newSecretCacheItem(opts, api, "id")

	for i := 0; i < 5; i++ {
		_, err := item.getSecretValue(ctx, "")
		require.Error(t, err)
	}

	// Only the first call fetched; the rest were inside the backoff
	// window and served the stored failure without touching the backend.
	assert.Equal(t, int64(1), api.describeCalls.Load())
	assert.Equal(t, 1, item.errCount)
}

func TestSecretCacheItem_StaleServesOnError(t *testing.T) {
	ctx := context.Background()
	fail := false
	api := &mockSecretsManagerAPI{
		describeSecretFunc: func(context.Context, *secretsmanager.DescribeSecretInput, ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return &secretsmanager.DescribeSecretOutput{
				VersionIdsToStages: map[string][]string{"v1": {"AWSCURRENT"}},
			}, nil
		},
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("mysecret")}, nil
		},
	}

	item := newSecretCacheItem(defaultCacheOptions(), api, "id")

	value, err := item.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "mysecret", aws.ToString(value.SecretString))

	// Force a refresh that fails; the stale metadata still resolves and
	// the cached version payload is served without error.
	fail = true
	item.refreshNow()

	value, err = item.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "mysecret", aws.ToString(value.SecretString))
	assert.Equal(t, int64(2), api.describeCalls.Load())
}

func TestSecretCacheItem_NoDataRaisesOnError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	api := &mockSecretsManagerAPI{
		describeSecretFunc: func(context.Context, *secretsmanager.DescribeSecretInput, ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, boom
		},
	}

	item := newSecretCacheItem(defaultCacheOptions(), api, "id")

	value, err := item.getSecretValue(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, value)
}

func TestSecretCacheItem_StageResolution(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(
		map[string][]string{"v1": {"AWSCURRENT"}},
		map[string]*secretsmanager.GetSecretValueOutput{
			"v1": {SecretString: aws.String("mysecret")},
		},
	)
	item := newSecretCacheItem(defaultCacheOptions(), api, "id")

	t.Run("known stage resolves", func(t *testing.T) {
		value, err := item.getSecretValue(ctx, "AWSCURRENT")
		require.NoError(t, err)
		require.NotNil(t, value)
	})

	t.Run("unknown stage resolves to nothing without error", func(t *testing.T) {
		value, err := item.getSecretValue(ctx, "AWSPREVIOUS")
		require.NoError(t, err)
		assert.Nil(t, value)
	})
}

func TestSecretCacheItem_JitteredRefreshWindow(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(
		map[string][]string{"v1": {"AWSCURRENT"}},
		map[string]*secretsmanager.GetSecretValueOutput{
			"v1": {SecretString: aws.String("mysecret")},
		},
	)

	opts := defaultCacheOptions()
	opts.refreshInterval = time.Hour

	// The jitter is uniform over [interval/2, interval]; sample a few
	// refreshes and check every draw lands in that window.
	for i := 0; i < 20; i++ {
		item := newSecretCacheItem(opts, api, "id")

		before := time.Now()
		_, err := item.getSecretValue(ctx, "")
		after := time.Now()
		require.NoError(t, err)

		assert.False(t, item.nextRefreshTime.Before(before.Add(30*time.Minute)),
			"next refresh scheduled before half the interval")
		assert.False(t, item.nextRefreshTime.After(after.Add(time.Hour)),
			"next refresh scheduled past the full interval")
	}
}

func TestSecretCacheItem_RefreshAfterIntervalElapses(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(
		map[string][]string{"v1": {"AWSCURRENT"}},
		map[string]*secretsmanager.GetSecretValueOutput{
			"v1": {SecretString: aws.String("mysecret")},
		},
	)

	item := newSecretCacheItem(defaultCacheOptions(), api, "id")

	_, err := item.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), api.describeCalls.Load())

	// Within the interval the cached metadata is served.
	_, err = item.getSecretValue(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), api.describeCalls.Load())

	// Rewind the schedule to simulate the interval elapsing.
	item.mu.Lock()
	item.nextRefreshTime = time.Now().Add(-time.Second)
	item.mu.Unlock()

	_, err = item.getSecretValue(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), api.describeCalls.Load())
}

func TestSecretCacheItem_CopyOnRead(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(
		map[string][]string{"v1": {"AWSCURRENT"}},
		map[string]*secretsmanager.GetSecretValueOutput{
			"v1": {
				SecretString:  aws.String("mysecret"),
				SecretBinary:  []byte("payload"),
				VersionStages: []string{"AWSCURRENT"},
			},
		},
	)
	item := newSecretCacheItem(defaultCacheOptions(), api, "id")

	first, err := item.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Mutate everything the caller can reach.
	*first.SecretString = "tampered"
	first.SecretBinary[0] = 'X'
	first.VersionStages[0] = "TAMPERED"

	second, err := item.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "mysecret", aws.ToString(second.SecretString))
	assert.Equal(t, []byte("payload"), second.SecretBinary)
	assert.Equal(t, []string{"AWSCURRENT"}, second.VersionStages)
	assert.NotSame(t, first, second)
}

func TestSecretCacheVersion_FetchedOnce(t *testing.T) {
	ctx := context.Background()
	api := newMockAPI(
		map[string][]string{"v1": {"AWSCURRENT"}},
		map[string]*secretsmanager.GetSecretValueOutput{
			"v1": {SecretString: aws.String("mysecret")},
		},
	)
	version := newSecretCacheVersion(defaultCacheOptions(), api, "id", "v1")

	for i := 0; i < 5; i++ {
		value, err := version.getSecretValue(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, value)
		assert.Equal(t, "mysecret", aws.ToString(value.SecretString))
	}

	// Version payloads are immutable; one successful fetch is final.
	assert.Equal(t, int64(1), api.getCalls.Load())
}

func TestSecretCacheVersion_RetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	fail := true
	api := &mockSecretsManagerAPI{
		getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput, ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("mysecret")}, nil
		},
	}

	opts := defaultCacheOptions()
	opts.retryDelayBase = time.Nanosecond
	version := newSecretCacheVersion(opts, api, "id", "v1")

	_, err := version.getSecretValue(ctx, "")
	require.Error(t, err)

	// Once the (tiny) backoff window has passed, the next read retries
	// and succeeds.
	fail = false
	time.Sleep(time.Millisecond)

	value, err := version.getSecretValue(ctx, "")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "mysecret", aws.ToString(value.SecretString))
	assert.Equal(t, 0, version.errCount)
}

func TestSecretCacheItem_VersionCacheBounded(t *testing.T) {
	item := newSecretCacheItem(defaultCacheOptions(), &mockSecretsManagerAPI{}, "id")

	assert.Equal(t, versionCacheSize, item.versions.maxSize)
}
