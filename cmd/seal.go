package cmd

import (
	"github.com/spf13/cobra"
)

var sealCmd = &cobra.Command{
	Use:     "seal",
	GroupID: "lifecycle",
	Short:   "Seal the vault, clearing the current session",
	RunE:    runSeal,
}

func init() {
	rootCmd.AddCommand(sealCmd)
}

func runSeal(cmd *cobra.Command, args []string) error {
	if err := newEngine().Seal(); err != nil {
		return err
	}
	printSuccess("Vault sealed.")
	return nil
}
