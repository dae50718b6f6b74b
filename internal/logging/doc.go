// Package logging builds the slog loggers used across reelmark.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for ingestion. Loggers carry a standardized component
// attribute, and context helpers project video IDs, stage names, and
// correlation IDs into every record emitted within an enrichment invocation.
package logging
