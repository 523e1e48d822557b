package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"nosemig/internal/catalog"
	"nosemig/internal/driver"
	"nosemig/internal/observ"
	"nosemig/internal/report"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [paths...]",
	Short: "Rewrite legacy test constructs into pytest idioms",
	Long: `Rewrite every nose-style fragment under the given files or directories
(default: the migration root). Files are replaced atomically and each
fragment's outcome is recorded in the ledger, so a later run only handles
what is still pending or failed.

The exit status is 1 when any fragment failed or the run was aborted.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "compute rewrites and report them without touching files or the ledger")
	migrateCmd.Flags().IntP("jobs", "j", 0, "number of files migrated in parallel (0 = one per CPU)")
	migrateCmd.Flags().StringSlice("skip", nil, "pattern ids to leave alone (see 'nosemig catalog')")
	migrateCmd.Flags().Duration("timeout", 0, "stop dispatching new files after this long (0 = no limit)")
	migrateCmd.Flags().Bool("details", false, "list every fragment with its status and reason")
	migrateCmd.Flags().Bool("backup", false, "copy each original into .nosemig/backups before replacing it")
	migrateCmd.Flags().String("ui", "auto", "live progress view (auto|on|off)")
	addFilterFlags(migrateCmd)
	addFormatFlag(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	if err := ws.applyFilterFlags(cmd); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		if ws.cfg.DryRun, err = flags.GetBool("dry-run"); err != nil {
			return err
		}
	}
	if flags.Changed("jobs") {
		if ws.cfg.Concurrency, err = flags.GetInt("jobs"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if ws.cfg.Timeout.Duration, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("backup") {
		if ws.cfg.Backup, err = flags.GetBool("backup"); err != nil {
			return err
		}
	}
	skip, err := flags.GetStringSlice("skip")
	if err != nil {
		return err
	}
	if unknown := catalog.ValidateIDs(skip); len(unknown) > 0 {
		return fmt.Errorf("--skip: unknown pattern ids %v", unknown)
	}
	ws.cfg.SkipPatterns = append(ws.cfg.SkipPatterns, skip...)
	if err := ws.cfg.Validate(); err != nil {
		return err
	}
	details, err := flags.GetBool("details")
	if err != nil {
		return err
	}
	format, err := ws.outputFormat(cmd)
	if err != nil {
		return err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	l, err := ws.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()
	if n := l.Recovered(); n > 0 && !quiet(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "ledger: dropped %d bytes of an interrupted write\n", n)
	}

	timer := observ.NewTimer()
	req := driver.Request{
		Root:    ws.root,
		Paths:   args,
		Config:  ws.cfg,
		Ledger:  l,
		Details: details || ws.cfg.Report.Details,
		Timer:   timer,
	}

	var rep *report.Report
	if shouldUseTUI(mode, format != report.FormatText) && !quiet(cmd) {
		files, derr := driver.Discover(ws.root, args, ws.cfg)
		if derr != nil {
			return derr
		}
		rels := make([]string, len(files))
		for i, f := range files {
			rel, rerr := filepath.Rel(ws.root, f)
			if rerr != nil {
				return rerr
			}
			rels[i] = filepath.ToSlash(rel)
		}
		title := "migrate"
		if ws.cfg.DryRun {
			title += " (dry run)"
		}
		rep, err = runMigrateWithUI(cmd.Context(), title, rels, req)
	} else {
		rep, err = driver.Run(cmd.Context(), req)
	}

	if rep != nil {
		if werr := report.Write(cmd.OutOrStdout(), rep, format); werr != nil {
			return werr
		}
	}
	if showTimings {
		printTimings(cmd.ErrOrStderr(), timer)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if !rep.Clean() {
		return errUnclean
	}
	return nil
}
