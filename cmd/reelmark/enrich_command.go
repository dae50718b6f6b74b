package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "enrich <video-id>",
		Short: "Run the enrichment pipeline for one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID := strings.TrimSpace(args[0])
			if videoID == "" {
				return fmt.Errorf("video id is required")
			}

			pipe, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer pipe.Close()

			if !pipe.cfg.Enrichment.Enabled {
				return fmt.Errorf("enrichment is disabled in configuration")
			}

			record, err := pipe.orchestrator.Enrich(cmd.Context(), videoID, retry)
			if err != nil {
				return fmt.Errorf("enrich %s: %w", videoID, err)
			}

			printRecordSummary(cmd.OutOrStdout(), record)
			return nil
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "Reset a previously failed record and try again")
	return cmd
}
