package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nosemig/internal/config"
	"nosemig/internal/ledger"
	"nosemig/internal/report"
)

// workspace is the resolved migration root with its configuration.
type workspace struct {
	root string
	// manifest is empty when no nosemig.toml governs the root.
	manifest string
	cfg      config.Config
}

func applyColorFlag(cmd *cobra.Command) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	return nil
}

// loadWorkspace finds nosemig.toml (or takes --config) and resolves the root.
func loadWorkspace(cmd *cobra.Command) (*workspace, error) {
	flags := cmd.Root().PersistentFlags()
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	rootFlag, err := flags.GetString("root")
	if err != nil {
		return nil, err
	}

	ws := &workspace{}
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, err
		}
		ws.manifest, ws.root, ws.cfg = abs, filepath.Dir(abs), cfg
	} else {
		start := "."
		if rootFlag != "" {
			start = rootFlag
		}
		m, _, err := config.Discover(start)
		if err != nil {
			return nil, err
		}
		ws.manifest, ws.root, ws.cfg = m.Path, m.Root, m.Config
	}
	if rootFlag != "" {
		if ws.root, err = filepath.Abs(rootFlag); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func (ws *workspace) openLedger() (*ledger.Ledger, error) {
	l, err := ledger.OpenRoot(ws.root)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// applyFilterFlags overrides the include/exclude globs from flags, if given.
func (ws *workspace) applyFilterFlags(cmd *cobra.Command) error {
	include, err := cmd.Flags().GetStringSlice("include")
	if err != nil {
		return err
	}
	exclude, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return err
	}
	if len(include) > 0 {
		ws.cfg.Include = include
	}
	if len(exclude) > 0 {
		ws.cfg.Exclude = append(ws.cfg.Exclude, exclude...)
	}
	return ws.cfg.Validate()
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("include", nil, "glob of files to select, relative to the root (replaces the configured list)")
	cmd.Flags().StringSlice("exclude", nil, "glob of files to leave alone (added to the configured list)")
}

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "output format (text|json|yaml; default from nosemig.toml)")
}

// outputFormat reads --format, falling back to the configured default.
func (ws *workspace) outputFormat(cmd *cobra.Command) (report.Format, error) {
	value, err := cmd.Flags().GetString("format")
	if err != nil {
		return 0, err
	}
	if value == "" {
		value = ws.cfg.Report.Format
	}
	return report.ParseFormat(value)
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}
