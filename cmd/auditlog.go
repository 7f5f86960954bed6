package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nyxvault/secretvault/internal/audit"
)

var (
	auditLast   int
	auditFormat string
)

var auditLogCmd = &cobra.Command{
	Use:     "audit-log",
	GroupID: "audit",
	Short:   "Show entries from the append-only audit log",
	Long:    `Without --last, the entire log is shown, oldest first.`,
	RunE:    runAuditLog,
}

func init() {
	rootCmd.AddCommand(auditLogCmd)
	auditLogCmd.Flags().IntVar(&auditLast, "last", 0, "show only the trailing N entries")
	auditLogCmd.Flags().StringVar(&auditFormat, "format", "raw", "output format: raw, table")
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	sink := audit.New(AuditFilePath())

	var lines []string
	var err error
	if auditLast > 0 {
		lines, err = sink.Replay(auditLast)
	} else {
		lines, err = sink.Replay()
	}
	if err != nil {
		return err
	}

	if auditFormat != "table" {
		for _, l := range lines {
			fmt.Println(l)
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Timestamp", "Identity", "Operation", "Path", "Outcome", "Detail"})
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		fields := strings.Split(l, " | ")
		for len(fields) < 6 {
			fields = append(fields, "")
		}
		rows = append(rows, fields[:6])
	}
	_ = table.Bulk(rows)
	_ = table.Render()
	return nil
}
