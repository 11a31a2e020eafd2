// Package secretcache caches immutable secret version payloads.
package secretcache

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretCacheVersion caches the payload of one immutable secret version.
// Version payloads never change, so a successful fetch is final: the entry
// only re-fetches after a failure, under the shared backoff protocol, or
// when a refresh is forced.
type secretCacheVersion struct {
	cacheObject

	// versionID pins this entry to one version of the secret
	versionID string
}

func newSecretCacheVersion(opts *cacheOptions, client SecretsManagerAPI, secretID, versionID string) *secretCacheVersion {
	version := &secretCacheVersion{
		cacheObject: cacheObject{
			opts:          opts,
			client:        client,
			secretID:      secretID,
			refreshNeeded: true,
		},
		versionID: versionID,
	}
	version.strat = version
	return version
}

// isStale always reports false: a fetched version payload never expires.
func (v *secretCacheVersion) isStale(time.Time) bool {
	return false
}

// executeRefresh fetches the payload for this exact version.
func (v *secretCacheVersion) executeRefresh(ctx context.Context) (any, error) {
	return v.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:  aws.String(v.secretID),
		VersionId: aws.String(v.versionID),
	})
}

// resolveVersion returns the stored payload. The stage is ignored; a
// version entry is pinned to a single version id.
func (v *secretCacheVersion) resolveVersion(_ context.Context, _ string) (*secretsmanager.GetSecretValueOutput, error) {
	out, ok := v.getResult().(*secretsmanager.GetSecretValueOutput)
	if !ok {
		return nil, nil
	}
	return out, nil
}
