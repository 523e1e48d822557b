package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"nosemig/internal/config"
	"nosemig/internal/ledger"
)

// Discover returns the sorted absolute paths of the Python files selected
// by cfg under paths. Directories are walked recursively and filtered by the
// include and exclude globs; files named explicitly only need to end in .py
// and not be excluded. Every path must lie inside root.
func Discover(root string, paths []string, cfg config.Config) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{root}
	}
	seen := make(map[string]bool)
	var files []string
	add := func(abs string) {
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		rel, err := relTo(root, abs)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(abs, ".py") && !excluded(cfg, rel) {
				add(abs)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, rerr := relTo(root, path)
			if rerr != nil {
				return rerr
			}
			if d.IsDir() {
				if path != abs && (d.Name() == ledger.DirName || cfg.ExcludedDir(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && strings.HasSuffix(path, ".py") && cfg.Selected(rel) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

func excluded(cfg config.Config, rel string) bool {
	anyFile := cfg
	anyFile.Include = []string{"**"}
	return !anyFile.Selected(rel)
}

// relTo returns the slash-separated path of abs relative to root.
func relTo(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the migration root %s", abs, root)
	}
	return filepath.ToSlash(rel), nil
}

// isNotExist reports whether err means a path is missing.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
