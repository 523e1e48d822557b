package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nosemig/internal/ledger"
)

// ErrNoBackup is returned by Restore for files that were never backed up.
var ErrNoBackup = errors.New("no backup")

// Restored describes a file put back from its backup.
type Restored struct {
	Path   string
	Backup string
	// Reset is the number of ledger entries superseded for the file.
	Reset int
}

// Restore copies the backup of path over it atomically and supersedes the
// file's ledger entries, so the next migrate run processes it again.
func Restore(root, path string, l *ledger.Ledger) (*Restored, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	rel, err := relTo(root, abs)
	if err != nil {
		return nil, err
	}
	backup := filepath.Join(BackupDir(l), filepath.FromSlash(rel))
	info, err := os.Stat(backup)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("restore %s: %w", rel, ErrNoBackup)
		}
		return nil, fmt.Errorf("restore %s: %w", rel, err)
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", rel, err)
	}
	w := &atomicWriter{}
	if err := w.replace(abs, data, info.Mode().Perm()); err != nil {
		return nil, err
	}
	n, err := l.ResetPath(rel, "restored from backup")
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", rel, err)
	}
	return &Restored{Path: rel, Backup: backup, Reset: n}, nil
}
