package enrichment

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an enrichment record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
)

// NothingFoundMessage is the error message recorded when neither captions
// nor chapters could be obtained.
const NothingFoundMessage = "no captions or chapters found"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusPartial,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends an invocation.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// Record is the enrichment state for one video, persisted in SQLite.
// One record per video id; a single invocation owns and mutates it at a
// time.
type Record struct {
	ID               int64
	VideoID          string
	Status           Status
	CaptionsText     string
	CaptionsLanguage string
	CaptionsSource   string
	TranscriptText   string
	ChaptersText     string
	ChaptersJSON     string
	ChaptersSource   string
	ErrorMessage     string
	RetryCount       int
	ProgressMessage  string
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasCaptions reports whether a caption document was obtained.
func (r Record) HasCaptions() bool {
	return strings.TrimSpace(r.CaptionsText) != ""
}

// HasChapters reports whether chapter data was obtained.
func (r Record) HasChapters() bool {
	return strings.TrimSpace(r.ChaptersJSON) != ""
}

// SetProgress updates the transient progress message shown to pollers.
func (r *Record) SetProgress(message string) {
	r.ProgressMessage = message
}

// SetFailed marks the record failed with the given error message and
// clears transient progress.
func (r *Record) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.ProgressMessage = ""
}

// ResetForRetry returns a failed record to pending. Retry count is
// incremented so operators can see how often a video has been retried.
func (r *Record) ResetForRetry() {
	r.Status = StatusPending
	r.ErrorMessage = ""
	r.ProgressMessage = ""
	r.RetryCount++
}

// Finalize settles the terminal status from what was obtained: completed
// needs captions, partial needs chapters only, anything else is failed.
func (r *Record) Finalize(now time.Time) {
	switch {
	case r.HasCaptions():
		r.Status = StatusCompleted
		r.ErrorMessage = ""
	case r.HasChapters():
		r.Status = StatusPartial
		r.ErrorMessage = ""
	default:
		r.Status = StatusFailed
		r.ErrorMessage = NothingFoundMessage
	}
	r.ProgressMessage = ""
	processed := now.UTC()
	r.ProcessedAt = &processed
}
