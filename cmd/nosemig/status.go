package main

import (
	"github.com/spf13/cobra"

	"nosemig/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration progress recorded in the ledger",
	Long: `Show overall and per-directory progress from the ledger: how many
fragments are transformed, skipped, failed or pending. Nothing is scanned.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("details", false, "list every fragment with its status and reason")
	addFormatFlag(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	format, err := ws.outputFormat(cmd)
	if err != nil {
		return err
	}
	details, err := cmd.Flags().GetBool("details")
	if err != nil {
		return err
	}
	l, err := ws.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	rep := report.FromSnapshot(l.Snapshot(), report.Options{Details: details || ws.cfg.Report.Details})
	rep.Root = ws.root
	out := cmd.OutOrStdout()
	if format != report.FormatText {
		return report.Write(out, rep, format)
	}
	if err := report.WriteStatus(out, rep); err != nil {
		return err
	}
	if details {
		return report.WriteText(out, rep)
	}
	return nil
}
