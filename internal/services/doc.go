// Package services defines shared utilities consumed by the enrichment
// orchestrator and the external source integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, pipeline stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (not-found, rate-limited, transcription, caption extraction) so the
//     provider chain and orchestrator can decide whether to fall through or
//     finalize a record as failed.
//
// Use these helpers when wiring new source integrations so operational
// behaviour (error handling, observability) stays uniform across the pipeline.
package services
