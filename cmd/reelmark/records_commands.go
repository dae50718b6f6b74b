package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelmark/internal/enrichment"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and manage enrichment records",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsRetryCommand(ctx))

	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enrichment records",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []enrichment.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				status, ok := enrichment.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q (known: %s)", trimmed, knownStatuses())
				}
				statuses = append(statuses, status)
			}

			records, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No enrichment records")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.VideoID,
					string(record.Status),
					record.CaptionsSource,
					record.ChaptersSource,
					fmt.Sprintf("%d", record.RetryCount),
					formatRecordTime(record.ProcessedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"VIDEO", "STATUS", "CAPTIONS", "CHAPTERS", "RETRIES", "PROCESSED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show records with this status")
	return cmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var showCaptions bool

	cmd := &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show one enrichment record in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.GetByVideoID(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("no enrichment record for video %q", args[0])
			}

			out := cmd.OutOrStdout()
			printRecordSummary(out, record)
			if record.TranscriptText != "" {
				fmt.Fprintf(out, "Transcript:  %s\n", truncateText(record.TranscriptText, 200))
			}
			if record.ChaptersJSON != "" {
				fmt.Fprintf(out, "Chapters:    %s\n", record.ChaptersJSON)
			}
			if showCaptions && record.CaptionsText != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, record.CaptionsText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCaptions, "captions", false, "Print the full caption document")
	return cmd
}

func newRecordsRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [video-id]",
		Short: "Reset failed records to pending so the worker retries them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if all {
				if len(args) > 0 {
					return fmt.Errorf("--all does not take a video id")
				}
				count, err := store.RetryFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d failed record(s) reset to pending\n", count)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a video id is required unless --all is set")
			}

			videoID := strings.TrimSpace(args[0])
			record, err := store.GetByVideoID(cmd.Context(), videoID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("no enrichment record for video %q", videoID)
			}
			if record.Status != enrichment.StatusFailed {
				return fmt.Errorf("record for %s is %s; only failed records can be retried", videoID, record.Status)
			}

			record.ResetForRetry()
			if err := store.Update(cmd.Context(), record); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record for %s reset to pending (retry %d)\n", videoID, record.RetryCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Retry every failed record")
	return cmd
}

func knownStatuses() string {
	statuses := enrichment.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}
