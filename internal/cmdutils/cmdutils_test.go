package cmdutils_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	ini "gopkg.in/ini.v1"

	"github.com/joachricar/sessioncred/internal/cmdutils"
	"github.com/joachricar/sessioncred/internal/credentialbundle"
	"github.com/joachricar/sessioncred/internal/credentialexchange"
)

const metadataDoc = `{
	"Code": "Success",
	"LastUpdated": "2024-04-02T18:50:40Z",
	"Type": "AWS-HMAC",
	"AccessKeyId": "ASIAFRESHKEY",
	"SecretAccessKey": "freshsecret",
	"Token": "freshtoken",
	"Expiration": "2030-11-01T20:26:47Z"
}`

func callerIdentityHandler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.Write([]byte(`<GetCallerIdentityResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
    <GetCallerIdentityResult>
        <Arn>arn:aws:iam::112222333444:user/tester</Arn>
        <UserId>AIDACKCEVSQ6C2EXAMPLE</UserId>
        <Account>112222333444</Account>
    </GetCallerIdentityResult>
    <ResponseMetadata>
        <RequestId>c6104cbe-af31-11e0-8154-cbc7ccf896c7</RequestId>
    </ResponseMetadata>
</GetCallerIdentityResponse>`))
	})
	return mux
}

type mockSecretStore struct {
	stored *credentialbundle.Bundle
	saved  []*credentialbundle.Bundle
}

func (m *mockSecretStore) Bundle() (*credentialbundle.Bundle, error) {
	return m.stored, nil
}

func (m *mockSecretStore) Clear() error {
	m.stored = nil
	return nil
}

func (m *mockSecretStore) ClearAll() error {
	m.stored = nil
	return nil
}

func (m *mockSecretStore) SaveBundle(bundle *credentialbundle.Bundle) error {
	m.stored = bundle
	m.saved = append(m.saved, bundle)
	return nil
}

type mockMetadataApi struct {
	getMetadata func(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

func (m *mockMetadataApi) GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	return m.getMetadata(ctx, params, optFns...)
}

func metadataResponding(t *testing.T, docs map[string]string) *mockMetadataApi {
	return &mockMetadataApi{getMetadata: func(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
		doc, ok := docs[params.Path]
		if !ok {
			return nil, fmt.Errorf("no metadata at %s", params.Path)
		}
		return &imds.GetMetadataOutput{Content: io.NopCloser(strings.NewReader(doc))}, nil
	}}
}

// profileConf points the shared credentials file into a temp dir and
// returns a config that stores bundles under a named section there.
func profileConf(t *testing.T) credentialexchange.CredentialConfig {
	t.Helper()
	credsFile := path.Join(t.TempDir(), "creds")
	os.WriteFile(credsFile, []byte(``), 0600)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)
	return credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			Label:          "test-label",
			StoreInProfile: true,
			CfgSectionName: "test-section",
		},
		Region: "eu-west-1",
	}
}

func storedAccessKey(t *testing.T) string {
	t.Helper()
	cfg, err := ini.Load(os.Getenv("AWS_SHARED_CREDENTIALS_FILE"))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	return cfg.Section("test-section").Key("aws_access_key_id").String()
}

func Test_IngestMetadataPayload_fresh_store(t *testing.T) {
	secretStore := &mockSecretStore{}
	conf := profileConf(t)

	if err := cmdutils.IngestMetadataPayload(context.TODO(), []byte(metadataDoc), secretStore, conf); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	if len(secretStore.saved) != 1 {
		t.Fatalf("got %d saves, wanted 1", len(secretStore.saved))
	}
	if secretStore.saved[0].SessionToken() != "freshtoken" {
		t.Errorf("session token got %s, wanted freshtoken", secretStore.saved[0].SessionToken())
	}
	if storedAccessKey(t) != "ASIAFRESHKEY" {
		t.Errorf("profile access key got %s, wanted ASIAFRESHKEY", storedAccessKey(t))
	}
}

func Test_IngestMetadataPayload_requires_section_with_profile(t *testing.T) {
	conf := credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{StoreInProfile: true},
	}
	err := cmdutils.IngestMetadataPayload(context.TODO(), []byte(metadataDoc), &mockSecretStore{}, conf)
	if err == nil {
		t.Fatalf("got <nil>, wanted %s", cmdutils.ErrMissingArg)
	}
	if !errors.Is(err, cmdutils.ErrMissingArg) {
		t.Errorf("got %s, wanted %s", err, cmdutils.ErrMissingArg)
	}
}

func Test_IngestMetadataPayload_reuses_valid_cached_bundle(t *testing.T) {
	svr := httptest.NewServer(callerIdentityHandler(t))
	t.Cleanup(svr.Close)

	cached, err := credentialbundle.New(map[string]string{
		credentialbundle.KeyAccessKeyID:     "ASIACACHEDKEY",
		credentialbundle.KeySecretAccessKey: "cachedsecret",
		credentialbundle.KeySessionToken:    "cachedtoken",
		credentialbundle.KeyExpiration:      "2030-11-01T20:26:47Z",
	})
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	secretStore := &mockSecretStore{stored: cached}
	conf := profileConf(t)
	conf.Endpoint = svr.URL

	if err := cmdutils.IngestMetadataPayload(context.TODO(), []byte(metadataDoc), secretStore, conf); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	if len(secretStore.saved) != 0 {
		t.Errorf("got %d saves, wanted 0 (cached bundle should be reused)", len(secretStore.saved))
	}
	if storedAccessKey(t) != "ASIACACHEDKEY" {
		t.Errorf("profile access key got %s, wanted ASIACACHEDKEY", storedAccessKey(t))
	}
}

func Test_IngestMetadataPayload_bad_payload(t *testing.T) {
	conf := profileConf(t)
	err := cmdutils.IngestMetadataPayload(context.TODO(), []byte(`{invalid json`), &mockSecretStore{}, conf)
	if err == nil {
		t.Fatalf("got <nil>, wanted %s", credentialbundle.ErrParse)
	}
	if !errors.Is(err, credentialbundle.ErrParse) {
		t.Errorf("got %s, wanted %s", err, credentialbundle.ErrParse)
	}
}

func Test_IngestFromIMDS_with(t *testing.T) {
	ttests := map[string]struct {
		role      string
		docs      map[string]string
		expectErr bool
		errTyp    error
	}{
		"explicit role": {
			role: "my-role",
			docs: map[string]string{
				"iam/security-credentials/my-role": metadataDoc,
			},
		},
		"role discovered from index": {
			role: "",
			docs: map[string]string{
				"iam/security-credentials/":                "discovered-role\n",
				"iam/security-credentials/discovered-role": metadataDoc,
			},
		},
		"metadata service unreachable": {
			role:      "my-role",
			docs:      map[string]string{},
			expectErr: true,
			errTyp:    cmdutils.ErrMetadataUnavailable,
		},
		"no role attached": {
			role: "",
			docs: map[string]string{
				"iam/security-credentials/": "\n",
			},
			expectErr: true,
			errTyp:    cmdutils.ErrMissingArg,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			secretStore := &mockSecretStore{}
			conf := profileConf(t)

			err := cmdutils.IngestFromIMDS(context.TODO(), metadataResponding(t, tt.docs), tt.role, secretStore, conf)

			if tt.expectErr {
				if err == nil {
					t.Fatalf("got <nil>, wanted %s", tt.errTyp)
				}
				if !errors.Is(err, tt.errTyp) {
					t.Errorf("got %s, wanted %s", err, tt.errTyp)
				}
				return
			}

			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if storedAccessKey(t) != "ASIAFRESHKEY" {
				t.Errorf("profile access key got %s, wanted ASIAFRESHKEY", storedAccessKey(t))
			}
		})
	}
}
