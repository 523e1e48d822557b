package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nosemig/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the migration patterns in priority order",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().String("format", "text", "output format (text|yaml)")
}

type catalogListing struct {
	Version  int            `yaml:"version"`
	Patterns []catalogEntry `yaml:"patterns"`
}

type catalogEntry struct {
	Priority        int    `yaml:"priority"`
	Phase           string `yaml:"phase"`
	catalog.Pattern `yaml:",inline"`
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	patterns := catalog.Patterns()
	out := cmd.OutOrStdout()

	switch strings.ToLower(format) {
	case "yaml", "yml":
		listing := catalogListing{Version: catalog.Version}
		for i, p := range patterns {
			listing.Patterns = append(listing.Patterns, catalogEntry{Priority: i + 1, Phase: p.Phase.String(), Pattern: p})
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(listing); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return fmt.Errorf("unsupported format %q (must be text or yaml)", format)
	}

	head := color.New(color.Bold)
	fmt.Fprintf(out, "%s\n", head.Sprintf("pattern catalog v%d", catalog.Version))
	for i, p := range patterns {
		id := runewidth.FillRight(p.ID, 27)
		fmt.Fprintf(out, "%2d. %s %-4s %s\n", i+1, color.CyanString(id), p.Phase, p.Description)
		fmt.Fprintf(out, "    %s %s\n", runewidth.FillRight("", 32), p.Rewrite)
	}
	return nil
}
