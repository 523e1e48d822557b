// Package config loads nosemig.toml, the per-project migration settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"nosemig/internal/catalog"
	"nosemig/internal/report"
)

// FileName is the manifest searched for from the working directory upwards.
const FileName = "nosemig.toml"

// Config mirrors nosemig.toml.
type Config struct {
	Concurrency  int      `toml:"concurrency"`
	DryRun       bool     `toml:"dry_run"`
	SkipPatterns []string `toml:"skip_patterns"`
	Include      []string `toml:"include"`
	Exclude      []string `toml:"exclude"`
	Timeout      Duration `toml:"timeout"`
	Backup       bool     `toml:"backup"`

	Report ReportConfig `toml:"report"`
}

// ReportConfig holds output defaults.
type ReportConfig struct {
	Format  string `toml:"format"`
	Details bool   `toml:"details"`
}

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Manifest is a loaded configuration with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Default returns the settings used without a manifest.
func Default() Config {
	return Config{
		Include: []string{"**/test_*.py", "**/*_test.py", "**/tests.py"},
		Exclude: []string{".nosemig/**", "**/.git/**", "**/.venv/**", "**/venv/**", "**/__pycache__/**"},
		Report:  ReportConfig{Format: "text"},
	}
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the manifest governing startDir. Without one the
// defaults apply and the root is startDir itself.
func Discover(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		root, err := filepath.Abs(startDir)
		if err != nil {
			return nil, false, err
		}
		return &Manifest{Root: root, Config: Default()}, false, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// Load decodes path over the defaults. Keys left out keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("include") && len(cfg.Include) == 0 {
		return Config{}, fmt.Errorf("%s: include must list at least one glob", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that TOML typing cannot.
func (c Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if unknown := catalog.ValidateIDs(c.SkipPatterns); len(unknown) > 0 {
		return fmt.Errorf("skip_patterns: unknown pattern ids %s", strings.Join(unknown, ", "))
	}
	for _, g := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid glob %q", g)
		}
	}
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return err
	}
	return nil
}

// Jobs resolves Concurrency, where zero means one worker per CPU.
func (c Config) Jobs() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// Skips returns SkipPatterns as a set.
func (c Config) Skips() map[string]bool {
	out := make(map[string]bool, len(c.SkipPatterns))
	for _, id := range c.SkipPatterns {
		out[id] = true
	}
	return out
}

// Selected reports whether rel, a slash-separated path relative to the
// root, passes the include and exclude globs.
func (c Config) Selected(rel string) bool {
	for _, g := range c.Exclude {
		if ok, _ := doublestar.Match(g, rel); ok {
			return false
		}
	}
	for _, g := range c.Include {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// ExcludedDir reports whether a directory can be pruned from a walk.
func (c Config) ExcludedDir(rel string) bool {
	for _, g := range c.Exclude {
		if ok, _ := doublestar.Match(g, rel+"/x"); ok && strings.HasSuffix(g, "/**") {
			return true
		}
	}
	return false
}

// Encode renders c as a manifest.
func (c Config) Encode() ([]byte, error) {
	var b strings.Builder
	b.WriteString("# nosemig migration settings\n\n")
	enc := toml.NewEncoder(&b)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// WriteDefault creates FileName in dir. It refuses to overwrite an existing
// manifest unless force is set.
func WriteDefault(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Default().Encode()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
