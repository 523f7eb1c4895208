// Package diag defines the diagnostic model shared by every pipeline phase:
// lexer, parser, graph builder, SSA verifier, optimization passes, and the
// interpreter.
//
// # Data model
//
// Diagnostic is the central record. It carries:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the canonical source.Span pointing at the issue.
//   - Notes – optional secondary spans/messages for additional context.
//   - Fixes – optional Fix records describing how to address the problem.
//
// # Emitting diagnostics
//
// Phases depend on the Reporter interface rather than a concrete sink. The
// parser, for example, constructs a ReportBuilder via NewReportBuilder (or
// the helpers ReportError/ReportWarning/ReportInfo), chains WithNote/WithFix,
// and calls Emit. For convenience, BagReporter aggregates diagnostics into a
// Bag, which supports sorting and deduplication; DedupReporter wraps another
// Reporter to filter out exact duplicates before they reach it.
//
// FormatGoldenDiagnostics and FormatShortDiagnostics render a diagnostic
// slice into a stable, single-line-per-entry textual form for tests and CLI
// short output respectively.
package diag
