// Package vtt parses and generates WebVTT cue tracks and provides the
// offset, merge, and deduplication operations the enrichment pipeline
// uses to stitch independently produced caption fragments into one
// chronological track.
package vtt
