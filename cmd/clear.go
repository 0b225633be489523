package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joachricar/sessioncred/internal/credentialexchange"
	"github.com/joachricar/sessioncred/internal/util"
)

var (
	clearCmd = &cobra.Command{
		Use:   "clear-cache",
		Short: "Clears any stored credential bundles in the OS secret store",
		RunE:  clear,
	}
)

func init() {
	RootCmd.AddCommand(clearCmd)
}

func clear(cmd *cobra.Command, args []string) error {
	secretStore, err := newSecretStore()
	if err != nil {
		return err
	}

	if err := secretStore.ClearAll(); err != nil {
		return err
	}

	iniFile := credentialexchange.ConfigIniFile("")
	if _, err := os.Stat(iniFile); err == nil {
		if err := os.Remove(iniFile); err != nil {
			return err
		}
	}
	util.Writeln("Credential bundle cache cleared")
	return nil
}
