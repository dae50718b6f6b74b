package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelmark/internal/captions"
	"reelmark/internal/chapters"
	"reelmark/internal/config"
	"reelmark/internal/logging"
	"reelmark/internal/platform"
	"reelmark/internal/ratelimit"
	"reelmark/internal/services"
	"reelmark/internal/vtt"
)

// MetadataSource provides the platform metadata an enrichment run needs.
type MetadataSource interface {
	Video(ctx context.Context, sourceID string) (*platform.Video, error)
}

// CaptionSource is the caption acquisition chain.
type CaptionSource interface {
	Fetch(ctx context.Context, sourceID string, durationHint float64) (*captions.Result, error)
}

// Options wires an Orchestrator. Gate must be the single process-wide
// platform gate shared by every concurrent invocation. Speech may be nil
// when the fallback is disabled.
type Options struct {
	Config   *config.Config
	Store    *Store
	Metadata MetadataSource
	Captions CaptionSource
	Chapters *chapters.Extractor
	Speech   SpeechFallback
	Gate     *ratelimit.Gate
	Logger   *slog.Logger
}

// Orchestrator drives one video through the enrichment state machine:
// pending, processing, then exactly one of completed, partial, or failed.
type Orchestrator struct {
	cfg      *config.Config
	store    *Store
	metadata MetadataSource
	captions CaptionSource
	chapters *chapters.Extractor
	speech   SpeechFallback
	gate     *ratelimit.Gate
	lockDir  string
	logger   *slog.Logger
}

// New validates the wiring and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("enrichment: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("enrichment: store is required")
	}
	if opts.Metadata == nil {
		return nil, errors.New("enrichment: metadata source is required")
	}
	if opts.Captions == nil {
		return nil, errors.New("enrichment: caption source is required")
	}
	if opts.Chapters == nil {
		return nil, errors.New("enrichment: chapter extractor is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("enrichment: rate gate is required")
	}
	return &Orchestrator{
		cfg:      opts.Config,
		store:    opts.Store,
		metadata: opts.Metadata,
		captions: opts.Captions,
		chapters: opts.Chapters,
		speech:   opts.Speech,
		gate:     opts.Gate,
		lockDir:  filepath.Join(opts.Config.Paths.WorkDir, "locks"),
		logger:   logging.NewComponentLogger(opts.Logger, "enrichment"),
	}, nil
}

// Enrich runs the state machine for one video. Pipeline failures never
// propagate: the record always reaches a terminal status and the returned
// error covers only infrastructure problems (locking, persistence) that
// prevented the run from starting or being recorded.
func (o *Orchestrator) Enrich(ctx context.Context, videoID string, retry bool) (*Record, error) {
	lock, err := acquireVideoLock(ctx, o.lockDir, videoID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	ctx = services.WithVideoID(ctx, videoID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)

	record, err := o.store.GetOrCreate(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if record.Status.IsTerminal() {
		if !(retry && record.Status == StatusFailed) {
			logger.Info("record already terminal, skipping",
				logging.String("status", string(record.Status)))
			return record, nil
		}
		record.ResetForRetry()
		if err := o.store.Update(ctx, record); err != nil {
			return nil, err
		}
		logger.Info("failed record reset for retry",
			logging.Int("retry_count", record.RetryCount))
	}

	record.Status = StatusProcessing
	record.SetProgress("Starting enrichment")
	if err := o.store.Update(ctx, record); err != nil {
		return nil, err
	}

	if runErr := o.run(ctx, logger, record); runErr != nil {
		record.SetFailed(runErr.Error())
		now := time.Now().UTC()
		record.ProcessedAt = &now
	} else {
		record.Finalize(time.Now())
	}
	if err := o.store.Update(ctx, record); err != nil {
		return nil, err
	}
	logger.Info("enrichment finished",
		logging.String("status", string(record.Status)),
		logging.String("captions_source", record.CaptionsSource),
		logging.String("chapters_source", record.ChaptersSource))
	return record, nil
}

// run executes the captions and chapters phases. A returned error means
// the run could not proceed at all; provider-level failures are absorbed
// and leave the record settling on whatever was obtained. Panics are
// recovered so the caller can still settle the record.
func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, record *Record) (runErr error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("enrichment panicked", logging.Any("panic", recovered))
			runErr = fmt.Errorf("enrichment panicked: %v", recovered)
		}
	}()

	video, err := o.metadata.Video(ctx, record.VideoID)
	if err != nil {
		logger.Warn("video metadata unavailable", logging.Error(err))
		return err
	}

	o.acquireCaptions(ctx, logger, record, video)
	o.acquireChapters(ctx, logger, record, video)

	// A cancelled run must not settle as completed or partial with
	// whatever it happened to gather before the cancellation.
	return ctx.Err()
}

// acquireCaptions holds one shared gate permit across the whole captions
// phase, native chain first and speech fallback second.
func (o *Orchestrator) acquireCaptions(ctx context.Context, logger *slog.Logger, record *Record, video *platform.Video) {
	record.SetProgress("Fetching captions")
	o.saveProgress(ctx, logger, record)

	err := o.gate.Do(ctx, func(ctx context.Context) error {
		result, err := o.captions.Fetch(ctx, video.ID, video.Duration)
		if err != nil {
			return err
		}
		if result == nil && o.speech != nil && o.cfg.SpeechEnabled() {
			record.SetProgress("Transcribing audio")
			o.saveProgress(ctx, logger, record)
			result, err = o.speech.Transcribe(ctx, video)
			if err != nil {
				logger.Warn("speech transcription failed", logging.Error(err))
				return nil
			}
		}
		if result != nil {
			o.applyCaptions(record, result)
		}
		return nil
	})
	if err != nil {
		logger.Warn("captions phase failed", logging.Error(err))
	}
}

func (o *Orchestrator) applyCaptions(record *Record, result *captions.Result) {
	record.CaptionsText = result.Document
	record.CaptionsLanguage = captions.NormalizeTag(result.Language)
	record.CaptionsSource = result.Source
	if segments := vtt.Parse(result.Document); len(segments) > 0 {
		record.TranscriptText = vtt.DeduplicateRolling(segments)
	}
}

// acquireChapters runs regardless of the captions outcome and outside the
// shared gate: chapter metadata calls are cheap native lookups.
func (o *Orchestrator) acquireChapters(ctx context.Context, logger *slog.Logger, record *Record, video *platform.Video) {
	record.SetProgress("Extracting chapters")
	o.saveProgress(ctx, logger, record)

	list := o.chapters.FetchNative(ctx, video.ID, video.Duration)
	source := chapters.SourceNative
	if len(list) == 0 {
		list = chapters.ParseFromText(video.Description, video.Duration)
		source = chapters.SourceDescription
	}
	if len(list) == 0 {
		return
	}

	chaptersJSON, err := chapters.ToJSON(list)
	if err != nil {
		logger.Warn("chapter serialization failed", logging.Error(err))
		return
	}
	record.ChaptersJSON = chaptersJSON
	record.ChaptersText = chapters.ToCueTrack(list)
	record.ChaptersSource = source
}

// saveProgress flushes a progress message update. Best effort: a failed
// flush never aborts the run.
func (o *Orchestrator) saveProgress(ctx context.Context, logger *slog.Logger, record *Record) {
	if err := o.store.Update(ctx, record); err != nil {
		logger.Warn("progress save failed", logging.Error(err))
	}
}
