package report

import (
	"fmt"
	"io"
	"strings"
)

// Complexity rates how much work a file needs.
type Complexity string

const (
	Simple  Complexity = "simple"
	Complex Complexity = "complex"
)

// complexAt is the number of distinct patterns that makes a file complex.
const complexAt = 6

// RateComplexity rates a file by the number of distinct patterns it uses.
func RateComplexity(distinct int) Complexity {
	if distinct >= complexAt {
		return Complex
	}
	return Simple
}

// PatternCount is the number of fragments of one pattern in a file.
type PatternCount struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Count   int    `json:"count" yaml:"count"`
}

// ScanFile lists the legacy constructs left in one file.
type ScanFile struct {
	Path       string         `json:"path" yaml:"path"`
	Fragments  int            `json:"fragments" yaml:"fragments"`
	Patterns   []PatternCount `json:"patterns" yaml:"patterns"`
	Complexity Complexity     `json:"complexity" yaml:"complexity"`
	Notes      []string       `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FileError is a file that could not be read or parsed.
type FileError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Scan is the result of a read-only pass over the tree.
type Scan struct {
	Root    string      `json:"root" yaml:"root"`
	Scanned int         `json:"scanned" yaml:"scanned"`
	Files   []ScanFile  `json:"files" yaml:"files"`
	Errors  []FileError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Fragments is the number of fragments over all files.
func (s *Scan) Fragments() int {
	n := 0
	for _, f := range s.Files {
		n += f.Fragments
	}
	return n
}

// WriteScan encodes s in format f.
func WriteScan(w io.Writer, s *Scan, f Format) error {
	if f != FormatText {
		return encode(w, s, f)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d files scanned, %d need migration, %d fragments\n",
		headColor.Sprint("scan:"), s.Scanned, len(s.Files), s.Fragments())
	for _, file := range s.Files {
		rating := skippedColor.Sprint(file.Complexity)
		if file.Complexity == Simple {
			rating = transformedColor.Sprint(file.Complexity)
		}
		fmt.Fprintf(&b, "\n%s %4d  %s\n", pad(file.Path, pathWidth), file.Fragments, rating)
		for _, p := range file.Patterns {
			fmt.Fprintf(&b, "    %s %d\n", pad(p.Pattern, 28), p.Count)
		}
		if len(file.Notes) > 0 {
			fmt.Fprintf(&b, "    notes: %s\n", strings.Join(file.Notes, ", "))
		}
	}
	writeErrors(&b, s.Errors)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeErrors(b *strings.Builder, errs []FileError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d)\n", failedColor.Sprint("unreadable"), len(errs))
	for _, e := range errs {
		fmt.Fprintf(b, "  %s\n      %s\n", e.Path, e.Error)
	}
}
