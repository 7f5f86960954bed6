package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:     "put PATH [VALUE]",
	GroupID: "secrets",
	Short:   "Store or update the value at a secret path",
	Long: `Put requires --identity and the write capability on PATH. If VALUE is
omitted, it is read from a no-echo prompt so secrets are never typed
as visible command-line arguments by default.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	identity, err := requireIdentity()
	if err != nil {
		return err
	}
	path := args[0]

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		value, err = readPassword(fmt.Sprintf("Value for %s: ", path))
		if err != nil {
			return err
		}
		cmd.Println()
	}

	if err := newEngine().Put(identity, path, value); err != nil {
		return err
	}

	printSuccess("Stored %s", path)
	return nil
}
