// Package secretcache provides typed errors for secret cache operations.
//
// # Error Handling Security
//
// This package defines typed errors to ensure secure error handling:
//
// - Errors never expose secret values in their messages
// - Use errors.Is() to check for specific error types
// - AWS SDK errors are classified into sentinels without leaking details
package secretcache

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// AWS error code constants
const (
	resourceNotFoundException = "ResourceNotFoundException"
	accessDeniedException     = "AccessDeniedException"
)

var (
	// ErrSecretNotFound is returned when the backend reports that the
	// requested secret does not exist in AWS Secrets Manager.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrAccessDenied is returned when the AWS credentials do not have
	// sufficient permissions to read the requested secret. This typically
	// indicates missing secretsmanager:DescribeSecret or
	// secretsmanager:GetSecretValue IAM permissions.
	ErrAccessDenied = errors.New("access denied to secret")

	// ErrVersionNotFound is returned when the requested version stage has
	// no matching version in the secret's current metadata. This is a
	// legitimate "no such version" outcome, distinct from a fetch failure.
	ErrVersionNotFound = errors.New("no secret version found for staging label")

	// ErrSecretEmpty is returned when a secret version exists but does not
	// carry the requested payload field, for example requesting the string
	// value of a binary-only secret.
	ErrSecretEmpty = errors.New("secret value is empty")
)

// classifyFetchError maps well-known AWS API failures onto the package
// sentinels so callers can use errors.Is without depending on smithy.
// Errors that do not match a known code pass through unchanged; the
// retry/backoff protocol treats every failure uniformly either way.
func classifyFetchError(err error, secretID string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case resourceNotFoundException:
			return fmt.Errorf("%w: %s", ErrSecretNotFound, secretID)
		case accessDeniedException:
			return fmt.Errorf("%w: %s", ErrAccessDenied, secretID)
		}
	}

	return err
}
