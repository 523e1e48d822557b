package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the migration ledger",
}

var ledgerCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the ledger keeping the latest record of each fragment",
	Args:  cobra.NoArgs,
	RunE:  runLedgerCompact,
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset <file>...",
	Short: "Forget the recorded outcomes of files so they are processed again",
	Long: `Supersede every ledger entry of the given files. Use it after changing
skip_patterns, or after editing a file by hand, to have the next migrate run
treat its fragments as new.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLedgerReset,
}

func init() {
	ledgerResetCmd.Flags().String("reason", "reset by user", "reason stored with the superseded entries")
	ledgerCmd.AddCommand(ledgerCompactCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
}

func runLedgerCompact(cmd *cobra.Command, _ []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	l, err := ws.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()
	before, after, err := l.Compact()
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "compacted %s: %d -> %d bytes\n", l.Path(), before, after)
	}
	return nil
}

func runLedgerReset(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	reason, err := cmd.Flags().GetString("reason")
	if err != nil {
		return err
	}
	l, err := ws.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(ws.root, abs)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		n, err := l.ResetPath(rel, reason)
		if err != nil {
			return fmt.Errorf("reset %s: %w", rel, err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries reset\n", rel, n)
		}
	}
	return nil
}
