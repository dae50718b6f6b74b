// Package audio acquires a video's audio track and splits it into
// bounded-duration segments sized for the speech-to-text provider. All
// work happens inside a Session that owns a scratch directory; Close
// removes every file the session produced regardless of how the pipeline
// exits.
package audio
