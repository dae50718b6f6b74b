// Package platform wraps the video platform's metadata API: video lookup,
// caption track listing and download, chapter metadata, and audio stream
// resolution. Responses are classified into the shared error taxonomy so
// callers can distinguish missing videos from throttling. Transient
// network failures are retried with bounded exponential backoff; 429s and
// 404s are never retried here.
package platform
