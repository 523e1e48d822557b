package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Format selects a report encoding.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatYAML
)

// ParseFormat accepts "text", "json" and "yaml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
}

var (
	transformedColor = color.New(color.FgGreen)
	skippedColor     = color.New(color.FgYellow)
	failedColor      = color.New(color.FgRed, color.Bold)
	pendingColor     = color.New(color.FgCyan)
	headColor        = color.New(color.Bold)
)

func statusColor(status string) *color.Color {
	switch status {
	case "transformed":
		return transformedColor
	case "skipped":
		return skippedColor
	case "failed":
		return failedColor
	default:
		return pendingColor
	}
}

// Write encodes r in format f.
func Write(w io.Writer, r *Report, f Format) error {
	if f == FormatText {
		return WriteText(w, r)
	}
	return encode(w, r, f)
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("format %d has no structured encoding", f)
}

const pathWidth = 48

func pad(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

func countsLine(c Counts) string {
	return fmt.Sprintf("%s %s %s %s",
		transformedColor.Sprintf("%4d transformed", c.Transformed),
		skippedColor.Sprintf("%4d skipped", c.Skipped),
		failedColor.Sprintf("%4d failed", c.Failed),
		pendingColor.Sprintf("%4d pending", c.Pending),
	)
}

// WriteText renders the human summary. Colors follow color.NoColor.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	title := "migration summary"
	if r.DryRun {
		title += " (dry run)"
	}
	b.WriteString(headColor.Sprint(title))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s %s", pad("total", pathWidth), countsLine(r.Totals))
	if r.Unknown > 0 {
		fmt.Fprintf(&b, " %4d unknown", r.Unknown)
	}
	b.WriteByte('\n')

	if len(r.Patterns) > 0 {
		b.WriteByte('\n')
		b.WriteString(headColor.Sprint("by pattern"))
		b.WriteByte('\n')
		for _, p := range r.Patterns {
			fmt.Fprintf(&b, "%s %s\n", pad("  "+p.Pattern, pathWidth), countsLine(p.Counts))
		}
	}
	if len(r.Files) > 0 {
		b.WriteByte('\n')
		b.WriteString(headColor.Sprint("by file"))
		b.WriteByte('\n')
		for _, f := range r.Files {
			fmt.Fprintf(&b, "%s %s\n", pad("  "+f.Path, pathWidth), countsLine(f.Counts))
		}
	}
	if len(r.Details) > 0 {
		b.WriteByte('\n')
		b.WriteString(headColor.Sprint("fragments"))
		b.WriteByte('\n')
		for _, d := range r.Details {
			status := statusColor(d.Status).Sprint(runewidth.FillRight(d.Status, 11))
			fmt.Fprintf(&b, "  %s %s %s", status, pad(d.Pattern, 26), d.ID)
			if d.Reason != "" {
				fmt.Fprintf(&b, "\n      %s", d.Reason)
			}
			b.WriteByte('\n')
		}
	}
	if len(r.Unprocessed) > 0 {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s (%d)\n", headColor.Sprint("not processed"), len(r.Unprocessed))
		for _, p := range r.Unprocessed {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}
	if r.Aborted {
		fmt.Fprintf(&b, "\n%s %s\n", failedColor.Sprint("aborted:"), r.AbortReason)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteStatus renders overall and per-directory progress.
func WriteStatus(w io.Writer, r *Report) error {
	var b strings.Builder
	files := len(r.Files)
	overall := DirCounts{Dir: "overall", Files: files, Counts: r.Totals}
	writeDir := func(d DirCounts) {
		fmt.Fprintf(&b, "%s %5.1f%%  %3d files  %s\n",
			pad(d.Dir, pathWidth), d.Percent(), d.Files, countsLine(d.Counts))
	}
	b.WriteString(headColor.Sprint("migration status"))
	b.WriteByte('\n')
	writeDir(overall)
	dirs := r.Directories()
	if len(dirs) > 0 {
		b.WriteByte('\n')
		for _, d := range dirs {
			writeDir(d)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
