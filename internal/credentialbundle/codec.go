package credentialbundle

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// serializeVersion tags the envelope format. Bump on any shape change
// so older blobs are rejected instead of half-decoded.
const serializeVersion = 1

// envelope is the explicit field list allowed in a serialized blob.
// The cached client handle is deliberately not part of it.
type envelope struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken"`
	Expiration      string `json:"Expiration"`
}

// Serialize encodes the bundle as an opaque string safe for text
// transports: a versioned JSON envelope wrapped in URL-safe base64.
// The output is structurally obfuscated, not encrypted - the caller
// owns channel confidentiality.
func (b *Bundle) Serialize() (string, error) {
	raw, err := json.Marshal(envelope{
		Version:         serializeVersion,
		AccessKeyID:     b.accessKeyID,
		SecretAccessKey: b.secretAccessKey,
		SessionToken:    b.sessionToken,
		Expiration:      b.expiration,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Deserialize is the inverse of Serialize. Anything that is not a
// validly encoded, bundle-shaped envelope of the current version fails
// with ErrDeserialization. The blob is decoded through a schema check
// only, never executed.
func Deserialize(blob string) (*Bundle, error) {
	raw, err := base64.URLEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("blob is not valid base64: %s, %w", err, ErrDeserialization)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("blob is not bundle shaped: %s, %w", err, ErrDeserialization)
	}
	if dec.More() {
		return nil, fmt.Errorf("blob has trailing data after envelope, %w", ErrDeserialization)
	}
	if env.Version != serializeVersion {
		return nil, fmt.Errorf("unsupported format version %d, %w", env.Version, ErrDeserialization)
	}
	for k, v := range map[string]string{
		KeyAccessKeyID:     env.AccessKeyID,
		KeySecretAccessKey: env.SecretAccessKey,
		KeySessionToken:    env.SessionToken,
		KeyExpiration:      env.Expiration,
	} {
		if v == "" {
			return nil, fmt.Errorf("blob is missing field %q, %w", k, ErrDeserialization)
		}
	}

	return &Bundle{
		accessKeyID:     env.AccessKeyID,
		secretAccessKey: env.SecretAccessKey,
		sessionToken:    env.SessionToken,
		expiration:      env.Expiration,
	}, nil
}
