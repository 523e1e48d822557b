package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"nosemig/internal/diag"
)

// Issue is one reason a file does not verify.
type Issue struct {
	Path     string        `json:"path" yaml:"path"`
	Code     string        `json:"code" yaml:"code"`
	Severity diag.Severity `json:"severity" yaml:"severity"`
	Line     uint32        `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string        `json:"message" yaml:"message"`
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return failedColor
	case diag.SevWarning:
		return skippedColor
	}
	return pendingColor
}

// Verification is the result of the static post-migration check.
type Verification struct {
	Root    string      `json:"root" yaml:"root"`
	Checked []string    `json:"checked" yaml:"checked"`
	Issues  []Issue     `json:"issues,omitempty" yaml:"issues,omitempty"`
	Errors  []FileError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// OK reports whether every checked file verified.
func (v *Verification) OK() bool {
	return len(v.Issues) == 0 && len(v.Errors) == 0
}

// WriteVerification encodes v in format f.
func WriteVerification(w io.Writer, v *Verification, f Format) error {
	if f != FormatText {
		return encode(w, v, f)
	}
	var b strings.Builder
	bad := make(map[string]bool)
	for _, is := range v.Issues {
		bad[is.Path] = true
	}
	for _, e := range v.Errors {
		bad[e.Path] = true
	}
	fmt.Fprintf(&b, "%s %d files checked, %d with issues\n",
		headColor.Sprint("verify:"), len(v.Checked), len(bad))
	for _, is := range v.Issues {
		loc := is.Path
		if is.Line > 0 {
			loc = fmt.Sprintf("%s:%d", is.Path, is.Line)
		}
		fmt.Fprintf(&b, "  %s %s %s %s\n", severityColor(is.Severity).Sprint(is.Severity), is.Code, loc, is.Message)
	}
	writeErrors(&b, v.Errors)
	if v.OK() {
		b.WriteString(transformedColor.Sprint("all files verified"))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
