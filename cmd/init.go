package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyxvault/secretvault/internal/cliutil"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "lifecycle",
	Short:   "Create a new, empty, sealed vault",
	Long: `Init creates the vault artifact at --vault-file: a fresh salt, a
freshly derived root key, and a verification token. The new vault has
no secrets and no policies, and is left sealed — run "unseal" next.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Master password: ")
	if err != nil {
		return err
	}
	fmt.Println()

	confirm, err := readPassword("Confirm master password: ")
	if err != nil {
		return err
	}
	fmt.Println()

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if strength := cliutil.AssessPassword(password); strength == cliutil.StrengthWeak {
		fmt.Println("Warning: this master password is weak (aim for 16+ characters mixing upper and lower case, digits, and symbols).")
	}

	if err := newEngine().Init(password); err != nil {
		return err
	}

	printSuccess("Vault created at %s (sealed)", VaultFilePath())
	return nil
}
