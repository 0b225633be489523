// Package cmdutils wires the CLI commands to the bundle, metadata and
// secret-store layers.
package cmdutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/joachricar/sessioncred/internal/credentialbundle"
	"github.com/joachricar/sessioncred/internal/credentialexchange"
	"github.com/joachricar/sessioncred/internal/util"
)

var (
	ErrMissingArg          = errors.New("missing arg")
	ErrUnableToValidate    = errors.New("unable to validate bundle")
	ErrMetadataUnavailable = errors.New("unable to read instance metadata")
)

const securityCredentialsPath = "iam/security-credentials/"

type SecretStorageImpl interface {
	Bundle() (*credentialbundle.Bundle, error)
	Clear() error
	ClearAll() error
	SaveBundle(bundle *credentialbundle.Bundle) error
}

// MetadataApi is the slice of the IMDS client used to pull role
// credentials off the instance metadata service.
type MetadataApi interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// IngestMetadataPayload turns an instance-metadata-shaped JSON payload
// into a bundle and routes it to the configured consumer. A bundle
// already cached in the secret store is reused while STS still accepts
// it, so repeated invocations do not churn the keyring.
func IngestMetadataPayload(ctx context.Context, payload []byte, secretStore SecretStorageImpl, conf credentialexchange.CredentialConfig) error {
	if conf.BaseConfig.CfgSectionName == "" && conf.BaseConfig.StoreInProfile {
		return fmt.Errorf("cfg-section name must be provided if store-profile is enabled, %w", ErrMissingArg)
	}

	stored, err := secretStore.Bundle()
	if err != nil {
		return err
	}

	if stored != nil {
		svc, err := stored.Client(ctx, clientOpts(conf)...)
		if err != nil {
			return err
		}
		valid, err := credentialexchange.IsValid(ctx, stored, conf.BaseConfig.ReloadBeforeTime, svc)
		if err != nil {
			return fmt.Errorf("failed to validate: %s, %w", err, ErrUnableToValidate)
		}
		if valid {
			util.Traceln("reusing cached bundle %s", stored.ShortName())
			return credentialexchange.SetCredentials(stored, conf)
		}
		util.Traceln("cached bundle %s no longer valid, refreshing", stored.ShortName())
	}

	bundle, err := credentialbundle.FromJSON(ctx, payload, clientOpts(conf)...)
	if err != nil {
		return err
	}
	return completeBundleStorage(secretStore, bundle, conf)
}

// IngestFromIMDS fetches the security-credentials document for a role
// from the instance metadata service and feeds it through the payload
// path. With an empty role the instance's attached role is discovered
// by listing the security-credentials index.
func IngestFromIMDS(ctx context.Context, svc MetadataApi, role string, secretStore SecretStorageImpl, conf credentialexchange.CredentialConfig) error {
	if role == "" {
		discovered, err := discoverRole(ctx, svc)
		if err != nil {
			return err
		}
		util.Traceln("discovered instance role %s", discovered)
		role = discovered
	}

	out, err := svc.GetMetadata(ctx, &imds.GetMetadataInput{Path: securityCredentialsPath + role})
	if err != nil {
		return fmt.Errorf("%s, %w", err, ErrMetadataUnavailable)
	}
	defer out.Content.Close()

	payload, err := io.ReadAll(out.Content)
	if err != nil {
		return fmt.Errorf("%s, %w", err, ErrMetadataUnavailable)
	}

	return IngestMetadataPayload(ctx, payload, secretStore, conf)
}

func discoverRole(ctx context.Context, svc MetadataApi) (string, error) {
	out, err := svc.GetMetadata(ctx, &imds.GetMetadataInput{Path: securityCredentialsPath})
	if err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrMetadataUnavailable)
	}
	defer out.Content.Close()

	raw, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrMetadataUnavailable)
	}

	for _, line := range strings.Split(string(raw), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("no role attached to this instance, %w", ErrMissingArg)
}

func completeBundleStorage(secretStore SecretStorageImpl, bundle *credentialbundle.Bundle, conf credentialexchange.CredentialConfig) error {
	if err := secretStore.SaveBundle(bundle); err != nil {
		return err
	}
	return credentialexchange.SetCredentials(bundle, conf)
}

func clientOpts(conf credentialexchange.CredentialConfig) []credentialbundle.ClientOption {
	opts := []credentialbundle.ClientOption{}
	if conf.Endpoint != "" {
		opts = append(opts, credentialbundle.WithEndpoint(conf.Endpoint))
	}
	if conf.Region != "" {
		opts = append(opts, credentialbundle.WithRegion(conf.Region))
	}
	return opts
}
