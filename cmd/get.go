package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var (
	getVersion   int
	getClipboard bool
)

var getCmd = &cobra.Command{
	Use:     "get PATH",
	GroupID: "secrets",
	Short:   "Retrieve the value at a secret path",
	Long: `Get requires --identity and the read capability on PATH. Without
--version, the highest-numbered version is returned. With --clipboard,
the value is copied to the system clipboard and only its metadata is
printed, so it never touches the terminal scrollback.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().IntVar(&getVersion, "version", 0, "specific version to retrieve (default: latest)")
	getCmd.Flags().BoolVar(&getClipboard, "clipboard", false, "copy the value to the clipboard instead of printing it")
}

func runGet(cmd *cobra.Command, args []string) error {
	identity, err := requireIdentity()
	if err != nil {
		return err
	}
	path := args[0]

	secret, err := newEngine().Get(identity, path, getVersion)
	if err != nil {
		return err
	}

	if getClipboard {
		if err := clipboard.WriteAll(secret.Value); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		printSuccess("Copied %s (version %d) to clipboard", secret.Path, secret.Version)
		return nil
	}

	fmt.Println(secret.Value)
	return nil
}
