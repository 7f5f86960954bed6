package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete PATH",
	GroupID: "secrets",
	Short:   "Remove all versions of the secret at a path",
	Long:    `Delete requires --identity and the delete capability on PATH.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	identity, err := requireIdentity()
	if err != nil {
		return err
	}

	if err := newEngine().Delete(identity, args[0]); err != nil {
		return err
	}

	printSuccess("Deleted %s", args[0])
	return nil
}
