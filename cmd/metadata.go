package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/spf13/cobra"

	"github.com/joachricar/sessioncred/internal/cmdutils"
	"github.com/joachricar/sessioncred/internal/credentialexchange"
)

var (
	ErrNoInputSource = errors.New("metadata - provide --file or --fetch")
)

var (
	fileName         string
	fetchLive        bool
	imdsRole         string
	endpoint         string
	region           string
	reloadBeforeTime int
	metadataCmd      = &cobra.Command{
		Use:   "metadata",
		Short: "Ingest temporary credentials from an instance metadata document",
		Long: `Ingest temporary credentials from an instance-metadata-shaped security-credentials JSON document.
Reads the document from a file (or stdin), or fetches it live from the instance metadata service,
then caches the bundle and outputs it per the root flags.`,
		RunE: getMetadata,
	}
)

func init() {
	metadataCmd.PersistentFlags().StringVarP(&fileName, "file", "f", "", "Path to a security-credentials JSON document, use - for stdin")
	metadataCmd.PersistentFlags().BoolVarP(&fetchLive, "fetch", "", false, "Fetch the security-credentials document live from the instance metadata service")
	metadataCmd.PersistentFlags().StringVarP(&imdsRole, "imds-role", "", "", "Instance profile role name, discovered from the metadata index when omitted")
	metadataCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Alternative STS endpoint for the client bound to the bundle")
	metadataCmd.PersistentFlags().StringVarP(&region, "region", "", "", "Region for the client bound to the bundle")
	metadataCmd.PersistentFlags().IntVarP(&reloadBeforeTime, "reload-before", "", 0, "Treat a cached bundle as stale this many seconds before its expiration")
	RootCmd.AddCommand(metadataCmd)
}

func getMetadata(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	conf := credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			Label:            label,
			CfgSectionName:   cfgSectionName,
			StoreInProfile:   storeInProfile,
			ReloadBeforeTime: reloadBeforeTime,
		},
		Endpoint: endpoint,
		Region:   region,
	}

	secretStore, err := newSecretStore()
	if err != nil {
		return err
	}

	if fetchLive {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to load aws config: %w", err)
		}
		return cmdutils.IngestFromIMDS(ctx, imds.NewFromConfig(cfg), imdsRole, secretStore, conf)
	}

	payload, err := readPayload(fileName)
	if err != nil {
		return err
	}
	return cmdutils.IngestMetadataPayload(ctx, payload, secretStore, conf)
}

func readPayload(name string) ([]byte, error) {
	switch name {
	case "":
		return nil, ErrNoInputSource
	case "-":
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func newSecretStore() (*credentialexchange.SecretStore, error) {
	currUser, err := user.Current()
	if err != nil {
		return nil, err
	}
	namer := fmt.Sprintf("%s-%s", credentialexchange.SELF_NAME, credentialexchange.LabelKeyConverter(label))
	return credentialexchange.NewSecretStore(label, namer, os.TempDir(), currUser.Username)
}
