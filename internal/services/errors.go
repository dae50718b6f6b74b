package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a source video that is unavailable upstream. Permanent
	// within an invocation; never retried.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited marks throttling by either the platform metadata source
	// or the speech provider. Retriable in principle, but the pipeline
	// surfaces it and moves to the next fallback instead of retrying.
	ErrRateLimited = errors.New("rate limited")
	// ErrTranscription marks a speech provider failure unrelated to rate
	// limiting (bad audio, provider outage).
	ErrTranscription = errors.New("transcription error")
	// ErrCaptionExtraction marks a failure fetching native captions. Caught
	// per provider; the chain continues.
	ErrCaptionExtraction = errors.New("caption extraction error")
	// ErrValidation marks malformed inputs or responses.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks any other failure presumed recoverable.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRateLimited reports whether err carries the rate-limit marker.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotFound reports whether err carries the not-found marker.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
