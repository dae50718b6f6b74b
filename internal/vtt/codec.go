package vtt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Header is the literal marker that opens every WebVTT document.
const Header = "WEBVTT"

// dedupWindow bounds how many previously emitted cue texts the rolling
// deduplicator compares against. Auto-generated tracks repeat text across
// adjacent cues only, so a small window is enough.
const dedupWindow = 5

// Segment is a single timed cue. Times are absolute seconds; End is always
// greater than Start for segments produced by this package.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Parse extracts cues from a WebVTT document. Documents that do not open
// with the WEBVTT marker yield an empty slice rather than an error; the
// caller treats that as "no usable captions". STYLE and NOTE blocks are
// skipped, and cues with unparseable timestamps, no text, or an end that
// does not exceed their start are dropped.
func Parse(document string) []Segment {
	content := strings.ReplaceAll(document, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, Header) {
			start = i + 1
		}
		break
	}
	if start < 0 {
		return nil
	}

	var segments []Segment
	i := start
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		if strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "REGION") {
			i = skipBlock(lines, i)
			continue
		}
		if !strings.Contains(line, "-->") {
			// Cue identifier or stray text; the timestamp line decides.
			i++
			continue
		}
		segStart, segEnd, err := parseCueTiming(line)
		i++
		var textLines []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			textLines = append(textLines, lines[i])
			i++
		}
		if err != nil || segEnd <= segStart {
			continue
		}
		text := strings.TrimSpace(strings.Join(textLines, "\n"))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Start: segStart, End: segEnd, Text: text})
	}
	return segments
}

// Generate renders segments as a WebVTT document. Segments are emitted in
// the order given; empty input yields the bare header.
func Generate(segments []Segment) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, seg := range segments {
		b.WriteString("\n")
		b.WriteString(FormatTimestamp(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(seg.End))
		b.WriteString("\n")
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Offset shifts every segment by delta seconds, clamping timestamps to zero.
// Segments whose clamped end no longer exceeds their clamped start are
// dropped: a cue pushed fully before time zero carries no information.
func Offset(segments []Segment, delta float64) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		start := seg.Start + delta
		end := seg.End + delta
		if start < 0 {
			start = 0
		}
		if end < 0 {
			end = 0
		}
		if end <= start {
			continue
		}
		out = append(out, Segment{Start: start, End: end, Text: seg.Text})
	}
	return out
}

// Merge parses each document, shifts it by the matching offset, and renders
// one combined document sorted by start time. Inputs come from audio chunks
// transcribed independently, so chronological re-sorting is required.
func Merge(documents []string, offsets []float64) string {
	var combined []Segment
	for i, doc := range documents {
		segments := Parse(doc)
		if i < len(offsets) && offsets[i] != 0 {
			segments = Offset(segments, offsets[i])
		}
		combined = append(combined, segments...)
	}
	sort.SliceStable(combined, func(a, b int) bool {
		return combined[a].Start < combined[b].Start
	})
	return Generate(combined)
}

// DeduplicateRolling flattens segments into plain text while collapsing the
// scrolling repetition some platforms emit in auto-generated tracks. A cue
// that extends a recently seen cue contributes only its new suffix; a cue
// fully contained in a recent one is skipped.
func DeduplicateRolling(segments []Segment) string {
	var parts []string
	var seen []string

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		prefix := ""
		skip := false
		for j := len(seen) - 1; j >= 0 && j >= len(seen)-dedupWindow; j-- {
			prev := seen[j]
			if prev == text || (len(prev) > len(text) && strings.Contains(prev, text)) {
				skip = true
				break
			}
			if strings.HasPrefix(text, prev) && len(prev) > len(prefix) {
				prefix = prev
			}
		}
		if skip {
			seen = append(seen, text)
			continue
		}

		emit := text
		if prefix != "" {
			emit = strings.TrimSpace(text[len(prefix):])
		}
		if emit != "" {
			parts = append(parts, emit)
		}
		seen = append(seen, text)
	}
	return strings.Join(parts, " ")
}

// FormatTimestamp renders seconds as a zero-padded HH:MM:SS.mmm timestamp.
// Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts an HH:MM:SS.mmm timestamp to seconds. Hours may
// have any width but must be present. A comma separator is tolerated for
// tracks converted from SRT.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	timeParts := strings.SplitN(value, ".", 2)
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var millis int
	if len(timeParts) == 2 {
		var err error
		millis, err = strconv.Atoi(timeParts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

func parseCueTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cue timing %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Cue settings may trail the end timestamp.
	endText := strings.TrimSpace(parts[1])
	if idx := strings.IndexAny(endText, " \t"); idx >= 0 {
		endText = endText[:idx]
	}
	end, err := ParseTimestamp(endText)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func skipBlock(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
		i++
	}
	return i
}
