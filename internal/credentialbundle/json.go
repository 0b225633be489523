package credentialbundle

import (
	"context"
	"encoding/json"
	"fmt"
)

// securityCredentials is the document shape served by the instance
// metadata service under iam/security-credentials/<role>. Note the
// session token travels as Token here, not SessionToken.
type securityCredentials struct {
	Code            string `json:"Code"`
	LastUpdated     string `json:"LastUpdated"`
	Type            string `json:"Type"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration"`
}

// FromJSON builds a bundle from an instance-metadata-shaped JSON
// payload, remapping Token to the canonical session token field and
// discarding the document's bookkeeping fields (Code, Type,
// LastUpdated). On success an STS client honoring the given options is
// constructed eagerly and attached to the bundle.
func FromJSON(ctx context.Context, payload []byte, opts ...ClientOption) (*Bundle, error) {
	var doc securityCredentials
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("invalid security credentials json: %s, %w", err, ErrParse)
	}

	for k, v := range map[string]string{
		KeyAccessKeyID:     doc.AccessKeyID,
		KeySecretAccessKey: doc.SecretAccessKey,
		"Token":            doc.Token,
		KeyExpiration:      doc.Expiration,
	} {
		if v == "" {
			return nil, fmt.Errorf("security credentials document is missing field %q, %w", k, ErrParse)
		}
	}

	b := &Bundle{
		accessKeyID:     doc.AccessKeyID,
		secretAccessKey: doc.SecretAccessKey,
		sessionToken:    doc.Token,
		expiration:      doc.Expiration,
	}
	if _, err := b.Client(ctx, opts...); err != nil {
		return nil, err
	}
	return b, nil
}
