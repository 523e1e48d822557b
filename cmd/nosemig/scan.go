package main

import (
	"github.com/spf13/cobra"

	"nosemig/internal/driver"
	"nosemig/internal/observ"
	"nosemig/internal/report"
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "List files that still use nose-style constructs",
	Long: `Scan the selected files without changing anything and list, per file,
how many fragments of each pattern remain. Files using more than five
distinct patterns are rated complex.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntP("jobs", "j", 0, "number of files scanned in parallel (0 = one per CPU)")
	addFilterFlags(scanCmd)
	addFormatFlag(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	if err := ws.applyFilterFlags(cmd); err != nil {
		return err
	}
	if cmd.Flags().Changed("jobs") {
		if ws.cfg.Concurrency, err = cmd.Flags().GetInt("jobs"); err != nil {
			return err
		}
	}
	format, err := ws.outputFormat(cmd)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	timer := observ.NewTimer()
	var scan *report.Scan
	err = timer.Track("scan", func() error {
		var serr error
		scan, serr = driver.Analyze(cmd.Context(), ws.root, args, ws.cfg)
		return serr
	})
	if err != nil {
		return err
	}
	if err := report.WriteScan(cmd.OutOrStdout(), scan, format); err != nil {
		return err
	}
	if showTimings {
		printTimings(cmd.ErrOrStderr(), timer)
	}
	return nil
}
