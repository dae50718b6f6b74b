// Package chapters derives ordered, contiguous chapter lists for a video,
// preferring platform-native chapter metadata and falling back to
// timestamps parsed out of the video description. Chapter lists can be
// rendered both as the JSON contract consumed by the UI and as a WebVTT
// cue track for scrubbers.
package chapters
