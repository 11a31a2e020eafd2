// Package secretcache caches secret metadata and maps staging labels onto
// concrete secret versions.
package secretcache

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretCacheItem caches the DescribeSecret metadata for one secret id and
// owns a bounded LRU of the versions fetched for it. It refreshes its
// metadata on a jittered interval; version payloads are immutable and
// cached separately by secretCacheVersion.
type secretCacheItem struct {
	cacheObject

	// versions caches version entries keyed by version id
	versions *LRUCache[string, *secretCacheVersion]

	// nextRefreshTime is when the metadata is next considered stale
	nextRefreshTime time.Time
}

func newSecretCacheItem(opts *cacheOptions, client SecretsManagerAPI, secretID string) *secretCacheItem {
	item := &secretCacheItem{
		cacheObject: cacheObject{
			opts:          opts,
			client:        client,
			secretID:      secretID,
			refreshNeeded: true,
		},
		versions: NewLRUCache[string, *secretCacheVersion](versionCacheSize),
	}
	item.strat = item
	return item
}

// isStale reports whether the scheduled metadata refresh time has passed.
func (i *secretCacheItem) isStale(now time.Time) bool {
	return !i.nextRefreshTime.After(now)
}

// executeRefresh fetches the secret metadata and schedules the next
// refresh at a uniformly random point in [interval/2, interval]. The
// jitter keeps many processes holding the same secret from refreshing in
// lockstep.
func (i *secretCacheItem) executeRefresh(ctx context.Context) (any, error) {
	out, err := i.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(i.secretID),
	})
	if err != nil {
		return nil, err
	}

	half := i.opts.refreshInterval / 2
	jitter := time.Duration(rand.Int63n(int64(i.opts.refreshInterval-half) + 1))
	i.nextRefreshTime = time.Now().Add(half + jitter)

	return out, nil
}

// resolveVersion maps the staging label onto a version id using the stored
// metadata, then delegates to the cached version entry for that id,
// creating it on first use. A stage with no matching version resolves to
// nil without error.
func (i *secretCacheItem) resolveVersion(ctx context.Context, versionStage string) (*secretsmanager.GetSecretValueOutput, error) {
	versionID := i.versionIDForStage(versionStage)
	if versionID == "" {
		return nil, nil
	}

	version, ok := i.versions.Get(versionID)
	if !ok {
		i.versions.PutIfAbsent(versionID, newSecretCacheVersion(i.opts, i.client, i.secretID, versionID))
		version, ok = i.versions.Get(versionID)
		if !ok {
			return nil, nil
		}
	}

	return version.getSecretValue(ctx, versionStage)
}

// versionIDForStage finds the version id whose staging labels include the
// requested stage. Missing metadata, an unknown stage, or a hook returning
// an unexpected type all resolve to "" rather than an error.
func (i *secretCacheItem) versionIDForStage(versionStage string) string {
	describe, ok := i.getResult().(*secretsmanager.DescribeSecretOutput)
	if !ok || describe == nil {
		return ""
	}
	for id, stages := range describe.VersionIdsToStages {
		if slices.Contains(stages, versionStage) {
			return id
		}
	}
	return ""
}
