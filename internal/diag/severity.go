package diag

import "fmt"

// Severity ranks a diagnostic. Errors stop a file or fragment from being
// migrated; warnings are left for a human to look at.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{
	SevInfo:    "info",
	SevWarning: "warning",
	SevError:   "error",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("severity(%d)", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Severity is the default severity of c. Residual legacy usage found by
// verification is a warning, any other coded problem an error.
func (c Code) Severity() Severity {
	switch {
	case c == UnknownCode, c%1000 == 0:
		return SevInfo
	case c == MigResidualNoseUsage, c == MigResidualNoseImport:
		return SevWarning
	}
	return SevError
}
