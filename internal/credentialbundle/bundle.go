// Package credentialbundle models a short-lived AWS credential set
// (access key id, secret access key, session token, expiration) as an
// immutable value object, together with a text-safe serialization for
// handing the set between principals, an ingestion path for instance
// metadata security-credentials documents and a convenience factory
// for an STS client bound to the bundle.
//
// The bundle never parses or validates the expiration timestamp - it
// is carried as the provider-formatted string and freshness checking
// is left to the caller (see credentialexchange.IsValid).
package credentialbundle

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var (
	ErrConfiguration   = errors.New("invalid credential field set")
	ErrDeserialization = errors.New("unable to deserialize credential bundle")
	ErrParse           = errors.New("unable to parse security credentials document")
)

// Canonical field keys as returned by the federation/session-token API.
const (
	KeyAccessKeyID     = "AccessKeyId"
	KeySecretAccessKey = "SecretAccessKey"
	KeySessionToken    = "SessionToken"
	KeyExpiration      = "Expiration"
)

// Bundle holds one set of temporary credentials. All four fields are
// non-empty once a bundle has been constructed from any valid source.
type Bundle struct {
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	expiration      string

	// cached client built by Client/FromJSON, attach only if absent
	client *sts.Client
}

// New builds a bundle from the field mapping of a session-token
// response. The mapping must contain exactly the four canonical keys
// (KeyAccessKeyID, KeySecretAccessKey, KeySessionToken, KeyExpiration)
// with non-empty values. Unrecognized keys are rejected rather than
// silently dropped so malformed input cannot lose data unnoticed.
func New(fields map[string]string) (*Bundle, error) {
	for k := range fields {
		switch k {
		case KeyAccessKeyID, KeySecretAccessKey, KeySessionToken, KeyExpiration:
		default:
			return nil, fmt.Errorf("unrecognized field %q, %w", k, ErrConfiguration)
		}
	}
	for _, k := range []string{KeyAccessKeyID, KeySecretAccessKey, KeySessionToken, KeyExpiration} {
		if fields[k] == "" {
			return nil, fmt.Errorf("missing required field %q, %w", k, ErrConfiguration)
		}
	}
	return &Bundle{
		accessKeyID:     fields[KeyAccessKeyID],
		secretAccessKey: fields[KeySecretAccessKey],
		sessionToken:    fields[KeySessionToken],
		expiration:      fields[KeyExpiration],
	}, nil
}

func (b *Bundle) AccessKeyID() string {
	return b.accessKeyID
}

func (b *Bundle) SecretAccessKey() string {
	return b.secretAccessKey
}

func (b *Bundle) SessionToken() string {
	return b.sessionToken
}

// Expiration returns the provider-formatted expiration timestamp
// verbatim. No freshness guarantee is made - compare against the
// current time before trusting the bundle.
func (b *Bundle) Expiration() string {
	return b.expiration
}

// Field looks a field up by name, accepting both the camel-case wire
// spelling (accessKeyId) and the underscore spelling (access_key_id)
// for every field. Both spellings of a field return the same value.
func (b *Bundle) Field(name string) (string, bool) {
	switch name {
	case "accessKeyId", "access_key_id", KeyAccessKeyID:
		return b.accessKeyID, true
	case "secretAccessKey", "secret_access_key", KeySecretAccessKey:
		return b.secretAccessKey, true
	case "sessionToken", "session_token", KeySessionToken:
		return b.sessionToken, true
	case "expiration", KeyExpiration:
		return b.expiration, true
	}
	return "", false
}

// ShortName returns the access key id as a human-readable label for
// display and log contexts.
func (b *Bundle) ShortName() string {
	return b.accessKeyID
}

// Display returns the session token. Callers that need the token in a
// string context must use this method explicitly.
func (b *Bundle) Display() string {
	return b.sessionToken
}

// String renders a redacted label so that formatting a bundle with
// %s/%v can never leak the secret key or session token.
func (b *Bundle) String() string {
	return fmt.Sprintf("%s (session token redacted)", b.accessKeyID)
}
