package chapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reelmark/internal/platform"
	"reelmark/internal/vtt"
)

type fakeSource struct {
	markers []platform.ChapterMarker
	err     error
}

func (f *fakeSource) Chapters(context.Context, string) ([]platform.ChapterMarker, error) {
	return f.markers, f.err
}

func TestParseFromText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		duration float64
		expected []Chapter
	}{
		{
			name:     "no timestamps",
			text:     "no timestamps here",
			duration: 600,
			expected: nil,
		},
		{
			name:     "single timestamp rejected",
			text:     "0:00 Intro",
			duration: 600,
			expected: nil,
		},
		{
			name:     "two chapters",
			text:     "0:00 Intro\n5:00 Main",
			duration: 600,
			expected: []Chapter{
				{Title: "Intro", Start: 0, End: 300},
				{Title: "Main", Start: 300, End: 600},
			},
		},
		{
			name:     "separator and hour form",
			text:     "some preamble\n0:30 - Opening\n1:00:00 — Deep dive\nnot 5:99 a chapter",
			duration: 4000,
			expected: []Chapter{
				{Title: "Opening", Start: 30, End: 3600},
				{Title: "Deep dive", Start: 3600, End: 4000},
			},
		},
		{
			name:     "unsorted input sorted",
			text:     "3:00 Later\n1:00 Earlier",
			duration: 240,
			expected: []Chapter{
				{Title: "Earlier", Start: 60, End: 180},
				{Title: "Later", Start: 180, End: 240},
			},
		},
		{
			name:     "out of range timestamp ignored",
			text:     "0:00 Intro\n5:00 Main\n99:00 Beyond",
			duration: 600,
			expected: []Chapter{
				{Title: "Intro", Start: 0, End: 300},
				{Title: "Main", Start: 300, End: 600},
			},
		},
		{
			name:     "untitled chapters get placeholders",
			text:     "0:00\n2:00",
			duration: 300,
			expected: []Chapter{
				{Title: "Chapter 1", Start: 0, End: 120},
				{Title: "Chapter 2", Start: 120, End: 300},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFromText(tt.text, tt.duration)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d chapters, want %d: %#v", len(got), len(tt.expected), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("chapter %d = %#v, want %#v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseFromTextContiguous(t *testing.T) {
	got := ParseFromText("0:00 A\n1:00 B\n2:00 C", 200)
	for i := 1; i < len(got); i++ {
		if got[i].Start != got[i-1].End {
			t.Fatalf("chapters not contiguous at %d: %#v", i, got)
		}
	}
	if got[len(got)-1].End != 200 {
		t.Fatalf("last chapter must end at total duration, got %v", got[len(got)-1].End)
	}
}

func TestFetchNative(t *testing.T) {
	source := &fakeSource{markers: []platform.ChapterMarker{
		{Title: "Two", Start: 60},
		{Title: "One", Start: 0},
	}}
	extractor := NewExtractor(source, nil)

	got := extractor.FetchNative(context.Background(), "vid-1", 120)
	if len(got) != 2 {
		t.Fatalf("expected 2 chapters, got %#v", got)
	}
	if got[0].Title != "One" || got[0].End != 60 {
		t.Errorf("unexpected first chapter: %#v", got[0])
	}
	if got[1].Title != "Two" || got[1].End != 120 {
		t.Errorf("unexpected last chapter: %#v", got[1])
	}
}

func TestFetchNativeErrorYieldsNil(t *testing.T) {
	extractor := NewExtractor(&fakeSource{err: errors.New("boom")}, nil)
	if got := extractor.FetchNative(context.Background(), "vid-1", 120); got != nil {
		t.Fatalf("expected nil on fetch error, got %#v", got)
	}
}

func TestFetchNativeEmptyYieldsNil(t *testing.T) {
	extractor := NewExtractor(&fakeSource{}, nil)
	if got := extractor.FetchNative(context.Background(), "vid-1", 120); got != nil {
		t.Fatalf("expected nil without markers, got %#v", got)
	}
}

func TestToJSONContract(t *testing.T) {
	out, err := ToJSON([]Chapter{{Title: "Intro", Start: 0, End: 300}})
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if out != `[{"title":"Intro","start":0,"end":300}]` {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestToCueTrack(t *testing.T) {
	doc := ToCueTrack([]Chapter{
		{Title: "Intro", Start: 0, End: 300},
		{Title: "Main", Start: 300, End: 600},
	})
	if !strings.HasPrefix(doc, "WEBVTT") {
		t.Fatalf("cue track missing header: %q", doc)
	}
	segments := vtt.Parse(doc)
	if len(segments) != 2 || segments[1].Text != "Main" {
		t.Fatalf("unexpected segments: %#v", segments)
	}
}
