package cmd

import (
	"github.com/spf13/cobra"
)

var unsealCmd = &cobra.Command{
	Use:     "unseal",
	GroupID: "lifecycle",
	Short:   "Unseal the vault for the current session",
	Long: `Unseal re-derives the root key from the master password and, if it
opens the verification token, publishes it to the session carrier so
subsequent commands can access plaintext until "seal" is run.`,
	RunE: runUnseal,
}

func init() {
	rootCmd.AddCommand(unsealCmd)
}

func runUnseal(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Master password: ")
	if err != nil {
		return err
	}
	cmd.Println()

	if err := newEngine().Unseal(password); err != nil {
		return err
	}

	printSuccess("Vault unsealed.")
	return nil
}
