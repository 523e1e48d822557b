package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nosemig/internal/driver"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <file>...",
	Short: "Put files back from their backups",
	Long: `Replace each file with the copy saved by 'migrate --backup' and reset its
ledger entries, so the next migrate run processes it again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	l, err := ws.openLedger()
	if err != nil {
		return err
	}
	defer l.Close()

	var errs []error
	for _, path := range args {
		res, err := driver.Restore(ws.root, path, l)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d ledger entries reset)\n", res.Path, res.Reset)
		}
	}
	return errors.Join(errs...)
}
