// Package speech drives audio chunks through the speech-to-text provider
// and reassembles the per-chunk results into one chronological cue track.
// Submissions are bounded by a small gate and spaced by a fixed delay
// because the provider enforces its own rate limit, independent of the
// platform API gate.
package speech
