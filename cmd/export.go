package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ErrNoCachedBundle = errors.New("no bundle cached for label")
)

var (
	showToken bool
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export a cached bundle as environment variables",
		Long:  `Print shell export lines for a bundle previously cached in the OS secret store under --label.`,
		RunE:  exportEnv,
	}
)

func init() {
	exportCmd.PersistentFlags().BoolVarP(&showToken, "token-only", "", false, "Print only the session token instead of export lines")
	RootCmd.AddCommand(exportCmd)
}

func exportEnv(cmd *cobra.Command, args []string) error {
	secretStore, err := newSecretStore()
	if err != nil {
		return err
	}

	bundle, err := secretStore.Bundle()
	if err != nil {
		return err
	}
	if bundle == nil {
		return fmt.Errorf("%q, %w", label, ErrNoCachedBundle)
	}

	if showToken {
		fmt.Fprintln(cmd.OutOrStdout(), bundle.Display())
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "export AWS_ACCESS_KEY_ID=%s\n", bundle.AccessKeyID())
	fmt.Fprintf(out, "export AWS_SECRET_ACCESS_KEY=%s\n", bundle.SecretAccessKey())
	fmt.Fprintf(out, "export AWS_SESSION_TOKEN=%s\n", bundle.SessionToken())
	return nil
}
