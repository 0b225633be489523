package credentialbundle_test

import (
	"context"
	"testing"

	"github.com/joachricar/sessioncred/internal/credentialbundle"
)

func Test_Client_uses_bundle_credentials(t *testing.T) {
	bundle, err := credentialbundle.New(validFields())
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	provider := bundle.CredentialsProvider()
	creds, err := provider.Retrieve(context.TODO())
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if creds.AccessKeyID != bundle.AccessKeyID() {
		t.Errorf("access key got %s, wanted %s", creds.AccessKeyID, bundle.AccessKeyID())
	}
	if creds.SecretAccessKey != bundle.SecretAccessKey() {
		t.Errorf("secret key got %s, wanted %s", creds.SecretAccessKey, bundle.SecretAccessKey())
	}
	if creds.SessionToken != bundle.SessionToken() {
		t.Errorf("session token got %s, wanted %s", creds.SessionToken, bundle.SessionToken())
	}
}

func Test_Client_is_attached_only_if_absent(t *testing.T) {
	bundle, err := credentialbundle.New(validFields())
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	first, err := bundle.Client(context.TODO(), credentialbundle.WithRegion("eu-west-1"))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	second, err := bundle.Client(context.TODO())
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if first != second {
		t.Error("second Client call should reuse the attached client")
	}
}
