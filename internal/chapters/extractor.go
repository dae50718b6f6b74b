package chapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reelmark/internal/logging"
	"reelmark/internal/platform"
	"reelmark/internal/vtt"
)

// Provenance tags recorded alongside a chapter list.
const (
	SourceNative      = "native"
	SourceDescription = "description"
)

// minTimestamps is the smallest number of distinct timestamps a description
// must contain before it is treated as a chapter listing. A single
// timestamp cannot bound a chapter.
const minTimestamps = 2

// Chapter is one named time range, absolute seconds over the full video.
type Chapter struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NativeSource provides platform-native chapter markers.
type NativeSource interface {
	Chapters(ctx context.Context, sourceID string) ([]platform.ChapterMarker, error)
}

// Extractor resolves chapters for a video from the available sources.
type Extractor struct {
	source NativeSource
	logger *slog.Logger
}

// NewExtractor builds an Extractor over the given native source.
func NewExtractor(source NativeSource, logger *slog.Logger) *Extractor {
	return &Extractor{
		source: source,
		logger: logging.NewComponentLogger(logger, "chapters"),
	}
}

// timestampLine matches a leading M:SS, MM:SS, or H:MM:SS token with an
// optional separator and title following it.
var timestampLine = regexp.MustCompile(`^[\s\[(]*(?:(\d{1,2}):)?(\d{1,2}):(\d{2})[\])]*[\s\-–—:·|.]*(.*)$`)

// FetchNative queries the platform for structured chapter markers and
// converts them into a contiguous chapter list. Absence of markers and
// fetch errors both yield nil; the fallback decides what happens next.
func (e *Extractor) FetchNative(ctx context.Context, sourceID string, totalDuration float64) []Chapter {
	markers, err := e.source.Chapters(ctx, sourceID)
	if err != nil {
		logging.WithContext(ctx, e.logger).Warn("native chapter fetch failed", logging.Error(err))
		return nil
	}
	if len(markers) == 0 {
		return nil
	}

	sort.SliceStable(markers, func(a, b int) bool { return markers[a].Start < markers[b].Start })
	out := make([]Chapter, 0, len(markers))
	for i, marker := range markers {
		end := totalDuration
		if i+1 < len(markers) {
			end = markers[i+1].Start
		}
		if end <= marker.Start {
			continue
		}
		title := strings.TrimSpace(marker.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		out = append(out, Chapter{Title: title, Start: marker.Start, End: end})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseFromText scans a video description for chapter timestamps. It needs
// at least two distinct in-range timestamps to accept the result; each
// chapter ends where the next begins, and the last ends at totalDuration.
func ParseFromText(description string, totalDuration float64) []Chapter {
	type mark struct {
		seconds float64
		title   string
	}

	var marks []mark
	seen := make(map[float64]struct{})
	for _, line := range strings.Split(description, "\n") {
		match := timestampLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		seconds, ok := timestampSeconds(match[1], match[2], match[3])
		if !ok {
			continue
		}
		if totalDuration > 0 && seconds >= totalDuration {
			continue
		}
		if _, dup := seen[seconds]; dup {
			continue
		}
		seen[seconds] = struct{}{}
		marks = append(marks, mark{seconds: seconds, title: strings.TrimSpace(match[4])})
	}
	if len(marks) < minTimestamps {
		return nil
	}

	sort.SliceStable(marks, func(a, b int) bool { return marks[a].seconds < marks[b].seconds })
	out := make([]Chapter, 0, len(marks))
	for i, m := range marks {
		end := totalDuration
		if i+1 < len(marks) {
			end = marks[i+1].seconds
		}
		if end <= m.seconds {
			continue
		}
		title := m.title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		out = append(out, Chapter{Title: title, Start: m.seconds, End: end})
	}
	if len(out) < minTimestamps {
		return nil
	}
	return out
}

// ToJSON renders the chapters-JSON contract: an ordered array of
// {title, start, end} objects with seconds as floating point.
func ToJSON(chapters []Chapter) (string, error) {
	data, err := json.Marshal(chapters)
	if err != nil {
		return "", fmt.Errorf("marshal chapters: %w", err)
	}
	return string(data), nil
}

// ToCueTrack renders chapters as a WebVTT document so UI scrubbers can
// consume them like any other cue track.
func ToCueTrack(chapters []Chapter) string {
	segments := make([]vtt.Segment, 0, len(chapters))
	for _, chapter := range chapters {
		segments = append(segments, vtt.Segment{Start: chapter.Start, End: chapter.End, Text: chapter.Title})
	}
	return vtt.Generate(segments)
}

func timestampSeconds(hours, minutes, seconds string) (float64, bool) {
	m, errM := strconv.Atoi(minutes)
	s, errS := strconv.Atoi(seconds)
	if errM != nil || errS != nil || s >= 60 {
		return 0, false
	}
	var h int
	if hours != "" {
		var errH error
		h, errH = strconv.Atoi(hours)
		if errH != nil {
			return 0, false
		}
		if m >= 60 {
			return 0, false
		}
	}
	return float64(h*3600 + m*60 + s), true
}
