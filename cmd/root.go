package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joachricar/sessioncred/internal/credentialexchange"
	"github.com/joachricar/sessioncred/internal/util"
)

var (
	cfgSectionName string
	storeInProfile bool
	label          string
	verbose        bool

	RootCmd = &cobra.Command{
		Use:   credentialexchange.SELF_NAME,
		Short: "CLI tool for handing off temporary AWS credentials",
		Long: `CLI tool for handing off already-issued temporary AWS credentials.
Ingests instance-metadata-shaped security-credentials documents, caches them in the OS secret store,
and returns the credential_process payload for use in config or stores them under a named profile section.`,
	}
)

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		util.Exit(err)
	}
}

func init() {
	cobra.OnInitialize(func() {
		util.IsTraceEnabled = verbose
	})
	RootCmd.PersistentFlags().StringVarP(&cfgSectionName, "cfg-section", "", "", "config section name in the AWS shared credentials file")
	RootCmd.PersistentFlags().BoolVarP(&storeInProfile, "store-profile", "s", false, "By default the credentials are returned to stdout to be used by the credential_process. Set this flag to instead store the credentials under a named profile section")
	RootCmd.PersistentFlags().StringVarP(&label, "label", "l", "default", "Label under which the bundle is cached in the OS secret store")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}
