package credentialexchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/joachricar/sessioncred/internal/credentialbundle"
)

var (
	ErrMissingBundle    = errors.New("no credential bundle provided")
	ErrUnableToValidate = errors.New("unable to validate bundle against sts")
)

// CallerIdentityApi is the narrow slice of the STS API needed to probe
// whether a bundle is still accepted by AWS.
type CallerIdentityApi interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IsValid reports whether the bundle can still be used. A nil bundle is
// simply not valid. When the bundle's expiration parses as RFC3339 and
// falls inside the reload window the bundle is treated as stale without
// calling AWS; otherwise GetCallerIdentity decides. Expired/invalid
// token API errors mean "not valid", any other failure is returned to
// the caller.
func IsValid(ctx context.Context, bundle *credentialbundle.Bundle, reloadBeforeSeconds int, svc CallerIdentityApi) (bool, error) {
	if bundle == nil {
		return false, nil
	}

	// The bundle keeps its expiration opaque; the freshness decision
	// lives here, where a clock is acceptable.
	if expiry, err := time.Parse(time.RFC3339, bundle.Expiration()); err == nil {
		if ReloadBeforeExpiry(expiry, reloadBeforeSeconds) {
			return false, nil
		}
	}

	if _, err := svc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ExpiredToken", "ExpiredTokenException", "InvalidClientTokenId":
				return false, nil
			}
		}
		return false, fmt.Errorf("%s, %w", err, ErrUnableToValidate)
	}
	return true, nil
}
