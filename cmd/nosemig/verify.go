package main

import (
	"github.com/spf13/cobra"

	"nosemig/internal/driver"
	"nosemig/internal/report"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Check migrated files statically",
	Long: `Check that migrated files still parse, match no migration pattern and
no longer import nose. By default only files with transformed fragments in
the ledger are checked; --all checks every selected file. Tests are not run.

The exit status is 1 when any file does not verify.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Bool("all", false, "check every selected file, not only migrated ones")
	addFilterFlags(verifyCmd)
	addFormatFlag(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	if err := ws.applyFilterFlags(cmd); err != nil {
		return err
	}
	format, err := ws.outputFormat(cmd)
	if err != nil {
		return err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	req := driver.VerifyRequest{Root: ws.root, Paths: args, Config: ws.cfg}
	if !all {
		l, err := ws.openLedger()
		if err != nil {
			return err
		}
		snap := l.Snapshot()
		if err := l.Close(); err != nil {
			return err
		}
		req.Snapshot = &snap
	}
	v, err := driver.Verify(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := report.WriteVerification(cmd.OutOrStdout(), v, format); err != nil {
		return err
	}
	if !v.OK() {
		return errUnclean
	}
	return nil
}
