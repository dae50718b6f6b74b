// Package captions acquires caption documents for a video from an
// ordered chain of providers. The native provider pulls platform caption
// tracks, preferring manually authored tracks over auto-generated ones
// and honoring a configured language priority; the speech transcription
// fallback is wired in by the orchestrator because it needs the audio
// acquisition path.
package captions
