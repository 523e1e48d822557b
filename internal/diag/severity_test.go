package diag

import "testing"

func TestCodeSeverity(t *testing.T) {
	cases := map[Code]Severity{
		UnknownCode:           SevInfo,
		MigInfo:               SevInfo,
		SynUnexpectedToken:    SevError,
		MigNonLiteralCases:    SevError,
		IOWriteFileError:      SevError,
		MigResidualNoseUsage:  SevWarning,
		MigResidualNoseImport: SevWarning,
	}
	for code, want := range cases {
		if got := code.Severity(); got != want {
			t.Errorf("%s.Severity() = %s, want %s", code.ID(), got, want)
		}
	}
}

func TestSeverityText(t *testing.T) {
	for _, sev := range []Severity{SevInfo, SevWarning, SevError} {
		b, err := sev.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Severity
		if err := back.UnmarshalText(b); err != nil || back != sev {
			t.Fatalf("%q round trip = %v, %v", b, back, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatal("ParseSeverity accepted an unknown name")
	}
}
