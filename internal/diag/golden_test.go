package diag

import (
	"testing"

	"nosemig/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSetWithBase("/workspace")

	userFile := fs.Add("/workspace/tests/test_sample.py", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     SynUnexpectedToken,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: userFile, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: 99, Start: 0, End: 0}, Msg: "unknown file is dropped"},
				{Span: source.Span{File: userFile, Start: 2, End: 3}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     MigResidualNoseImport,
			Message:  "another",
			Primary:  source.Span{File: userFile, Start: 2, End: 3},
		},
	}

	expected := "error SYN2001 tests/test_sample.py:1:1 first line second\n" +
		"note SYN2001 tests/test_sample.py:2:1 note line\n" +
		"warning MIG3101 tests/test_sample.py:2:1 another"

	if got := FormatGoldenDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagSortDedupAndLimit(t *testing.T) {
	bag := NewBag(3)
	sp := source.Span{File: 1, Start: 4, End: 5}
	bag.Add(NewError(LexBadNumber, sp, "x"))
	bag.Add(NewError(LexBadNumber, sp, "x again"))
	bag.Add(New(SevWarning, MigResidualNoseUsage, source.Span{File: 1, Start: 0, End: 1}, "y"))
	if bag.Add(NewError(LexNulByte, sp, "dropped")) {
		t.Fatalf("bag accepted a diagnostic past its limit")
	}
	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}
	if items[0].Code != MigResidualNoseUsage || items[1].Code != LexBadNumber {
		t.Fatalf("unexpected order: %v, %v", items[0].Code, items[1].Code)
	}
	if !bag.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestFirstErrorKeepsFirst(t *testing.T) {
	var fe FirstError
	fe.Report(MigInfo, SevInfo, source.Span{}, "info", nil, nil)
	fe.Report(LexUnterminatedString, SevError, source.Span{Start: 3}, "first", nil, nil)
	fe.Report(LexNulByte, SevError, source.Span{Start: 9}, "second", nil, nil)
	if fe.Diag == nil || fe.Diag.Code != LexUnterminatedString {
		t.Fatalf("FirstError = %+v", fe.Diag)
	}
}
