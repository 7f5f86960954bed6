package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list [PREFIX]",
	GroupID: "secrets",
	Short:   "List secret paths starting with an optional prefix",
	Long: `List requires --identity and the list capability on PREFIX (the
list capability, like the others, is evaluated against PREFIX itself,
not per matched secret). An omitted PREFIX lists every path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	identity, err := requireIdentity()
	if err != nil {
		return err
	}

	var prefix string
	if len(args) == 1 {
		prefix = args[0]
	}

	paths, err := newEngine().List(identity, prefix)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Path"})
	rows := make([][]string, 0, len(paths))
	for _, p := range paths {
		rows = append(rows, []string{p})
	}
	_ = table.Bulk(rows)
	_ = table.Render()
	return nil
}
