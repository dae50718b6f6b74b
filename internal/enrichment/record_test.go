package enrichment

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"pending", StatusPending, true},
		{"  Processing ", StatusProcessing, true},
		{"COMPLETED", StatusCompleted, true},
		{"partial", StatusPartial, true},
		{"failed", StatusFailed, true},
		{"", "", false},
		{"ripping", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusPartial:    true,
		StatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestFinalizeStatusFromContents(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		record  Record
		want    Status
		wantErr string
	}{
		{
			name:   "captions win regardless of chapters",
			record: Record{CaptionsText: "WEBVTT\n"},
			want:   StatusCompleted,
		},
		{
			name:   "captions and chapters still completed",
			record: Record{CaptionsText: "WEBVTT\n", ChaptersJSON: `[{"title":"Intro","start":0,"end":10}]`},
			want:   StatusCompleted,
		},
		{
			name:   "chapters only is partial",
			record: Record{ChaptersJSON: `[{"title":"Intro","start":0,"end":10}]`},
			want:   StatusPartial,
		},
		{
			name:    "nothing is failed",
			record:  Record{},
			want:    StatusFailed,
			wantErr: NothingFoundMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.record.ProgressMessage = "Extracting chapters"
			tc.record.Finalize(now)
			if tc.record.Status != tc.want {
				t.Errorf("status = %q, want %q", tc.record.Status, tc.want)
			}
			if tc.record.ErrorMessage != tc.wantErr {
				t.Errorf("error message = %q, want %q", tc.record.ErrorMessage, tc.wantErr)
			}
			if tc.record.ProgressMessage != "" {
				t.Error("progress message should be cleared at terminal state")
			}
			if tc.record.ProcessedAt == nil {
				t.Error("processed_at should be set")
			}
		})
	}
}

func TestResetForRetry(t *testing.T) {
	record := Record{
		Status:       StatusFailed,
		ErrorMessage: "no captions or chapters found",
		RetryCount:   1,
	}
	record.ResetForRetry()
	if record.Status != StatusPending {
		t.Errorf("status = %q, want pending", record.Status)
	}
	if record.ErrorMessage != "" {
		t.Error("error message should be cleared")
	}
	if record.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", record.RetryCount)
	}
}
