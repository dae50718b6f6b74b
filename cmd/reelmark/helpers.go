package main

import (
	"fmt"
	"io"
	"time"

	"reelmark/internal/enrichment"
)

func printRecordSummary(out io.Writer, record *enrichment.Record) {
	fmt.Fprintf(out, "Video:       %s\n", record.VideoID)
	fmt.Fprintf(out, "Status:      %s\n", record.Status)
	if record.CaptionsSource != "" {
		fmt.Fprintf(out, "Captions:    %s (%s)\n", record.CaptionsSource, orDash(record.CaptionsLanguage))
	}
	if record.ChaptersSource != "" {
		fmt.Fprintf(out, "Chapters:    %s\n", record.ChaptersSource)
	}
	if record.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", record.ErrorMessage)
	}
	if record.RetryCount > 0 {
		fmt.Fprintf(out, "Retries:     %d\n", record.RetryCount)
	}
	if record.ProcessedAt != nil {
		fmt.Fprintf(out, "Processed:   %s\n", record.ProcessedAt.Local().Format(time.RFC1123))
	}
}

func formatRecordTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04")
}

func truncateText(value string, limit int) string {
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
