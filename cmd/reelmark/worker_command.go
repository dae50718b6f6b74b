package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelmark/internal/logging"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Poll for pending records and enrich them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := ctx.buildPipeline()
			if err != nil {
				return err
			}
			defer pipe.Close()

			if !pipe.cfg.Enrichment.Enabled {
				return fmt.Errorf("enrichment is disabled in configuration")
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := logging.NewComponentLogger(pipe.logger, "worker")

			// Records abandoned by a previous crash go back to pending so
			// this worker can pick them up.
			if count, err := pipe.store.ResetStuckProcessing(runCtx); err != nil {
				logger.Warn("reset stuck records", logging.Error(err))
			} else if count > 0 {
				logger.Info("reset stuck records", logging.Int64("count", count))
			}

			interval := time.Duration(pipe.cfg.Workflow.PollInterval) * time.Second
			if interval <= 0 {
				interval = 10 * time.Second
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			logger.Info("worker started", logging.Duration("poll_interval", interval))
			for {
				if err := drainPending(runCtx, pipe, logger); err != nil {
					if runCtx.Err() != nil {
						logger.Info("worker stopping")
						return nil
					}
					logger.Warn("drain pending", logging.Error(err))
				}
				select {
				case <-runCtx.Done():
					logger.Info("worker stopping")
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

// drainPending enriches pending records one at a time until none remain.
func drainPending(ctx context.Context, pipe *pipeline, logger *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := pipe.store.NextPending(ctx)
		if err != nil {
			return err
		}
		if record == nil {
			return nil
		}
		logger.Info("enriching", logging.String("video_id", record.VideoID))
		if _, err := pipe.orchestrator.Enrich(ctx, record.VideoID, false); err != nil {
			logger.Warn("enrich failed", logging.String("video_id", record.VideoID), logging.Error(err))
		}
	}
}
