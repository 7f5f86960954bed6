package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "lifecycle",
	Short:   "Report whether the vault exists and is unsealed",
	Long:    `Status never writes an audit entry; it only reports lifecycle state.`,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := newEngine().Status()

	if !status.Exists {
		printDenied("no vault at %s", VaultFilePath())
		return nil
	}
	if status.Unsealed {
		printSuccess("vault exists, unsealed")
	} else {
		printDenied("vault exists, sealed")
	}
	return nil
}
