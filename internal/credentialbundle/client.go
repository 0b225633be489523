package credentialbundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var ErrClientConfig = errors.New("unable to configure sts client")

type clientOptions struct {
	endpoint string
	region   string
}

type ClientOption func(*clientOptions)

// WithEndpoint points the constructed client at an alternative STS
// endpoint, e.g. a regional endpoint or a local test double.
func WithEndpoint(url string) ClientOption {
	return func(o *clientOptions) {
		o.endpoint = url
	}
}

func WithRegion(region string) ClientOption {
	return func(o *clientOptions) {
		o.region = region
	}
}

// CredentialsProvider returns a static provider backed by the bundle,
// for wiring any AWS service client to these credentials in place of
// static access/secret key configuration.
func (b *Bundle) CredentialsProvider() aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(b.accessKeyID, b.secretAccessKey, b.sessionToken)
}

// Client returns an STS client authenticating with the bundle. The
// bundle's credentials override whatever static keys the ambient AWS
// configuration would otherwise supply. A client already attached to
// the bundle is reused rather than rebuilt.
func (b *Bundle) Client(ctx context.Context, opts ...ClientOption) (*sts.Client, error) {
	if b.client != nil {
		return b.client, nil
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(b.CredentialsProvider()),
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %s, %w", err, ErrClientConfig)
	}

	b.client = sts.NewFromConfig(cfg, func(so *sts.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
	})
	return b.client, nil
}
