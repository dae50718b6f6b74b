// Package enrichment persists per-video enrichment records and drives
// them through the pipeline: captions from the provider chain with a
// speech transcription fallback, chapters from native metadata with a
// description-parse fallback, and a terminal status reflecting what was
// obtained. Records live in SQLite; a per-video file lock keeps
// concurrent invocations for the same video serialized.
package enrichment
