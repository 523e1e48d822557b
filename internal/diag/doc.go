// Package diag defines the diagnostic model shared by the lexer, the parser,
// the pattern transforms and the verifier.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: short human text.
//   - Primary: the source.Span pointing at the issue.
//   - Notes: optional secondary spans.
//   - Fixes: optional Fix records.
//
// A Fix is a titled group of TextEdits that must be applied together. The
// transformer describes every fragment rewrite as one Fix whose ID is the
// fragment identity; internal/fix applies them to in-memory revisions.
// TextEdit.OldText acts as a guard: an edit whose span no longer holds the
// expected text is refused rather than applied to shifted content.
//
// # Emitting diagnostics
//
// Producers talk to a Reporter. BagReporter collects into a Bag, which supports
// sorting and deduplication. FormatGoldenDiagnostics renders a stable
// one-line-per-entry form used by tests and the CLI short output.
package diag
