package driver

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a file that could not be replaced. The original is
// left byte-identical.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RenameFunc replaces newpath with oldpath; os.Rename by default.
type RenameFunc func(oldpath, newpath string) error

// atomicWriter replaces files through a temp file in the same directory.
// Once the temp file is created the write always runs to the rename or
// removes the temp file; it never observes cancellation.
type atomicWriter struct {
	rename RenameFunc
	// backupDir, when set, receives a copy of each original before rename.
	backupDir string
}

func (w *atomicWriter) write(path, rel string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return &WriteError{Path: path, Op: "stat", Err: err}
	}
	if w.backupDir != "" {
		if err := w.backup(path, rel, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return w.replace(path, data, info.Mode().Perm())
}

func (w *atomicWriter) backup(path, rel string, perm os.FileMode) error {
	orig, err := os.ReadFile(path)
	if err != nil {
		return &WriteError{Path: path, Op: "backup", Err: err}
	}
	dst := filepath.Join(w.backupDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &WriteError{Path: path, Op: "backup", Err: err}
	}
	if err := w.replaceNew(dst, orig, perm); err != nil {
		return &WriteError{Path: path, Op: "backup", Err: err}
	}
	return nil
}

func (w *atomicWriter) replace(path string, data []byte, perm os.FileMode) error {
	if err := w.replaceNew(path, data, perm); err != nil {
		return &WriteError{Path: path, Op: "replace", Err: err}
	}
	return nil
}

// replaceNew writes data to a temp file next to path, syncs it and renames
// it over path.
func (w *atomicWriter) replaceNew(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".nosemig-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	rename := w.rename
	if rename == nil {
		rename = os.Rename
	}
	return rename(tmp.Name(), path)
}
