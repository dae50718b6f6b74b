package enrichment

import (
	"context"
	"log/slog"
	"time"

	"reelmark/internal/audio"
	"reelmark/internal/captions"
	"reelmark/internal/config"
	"reelmark/internal/logging"
	"reelmark/internal/platform"
	"reelmark/internal/services"
	"reelmark/internal/speech"
)

// SpeechFallback produces captions from the audio track when no native
// caption source delivered anything.
type SpeechFallback interface {
	Transcribe(ctx context.Context, video *platform.Video) (*captions.Result, error)
}

// AudioSource resolves the downloadable audio stream for a video.
type AudioSource interface {
	AudioStreamURL(ctx context.Context, sourceID string) (string, error)
}

// speechFallback drives the full acquire, chunk, transcribe, stitch path.
type speechFallback struct {
	cfg      *config.Config
	source   AudioSource
	pipeline *speech.Pipeline
	runner   audio.CommandRunner
	logger   *slog.Logger
}

// NewSpeechFallback wires the speech transcription path from
// configuration. The runner override exists for tests; pass nil in
// production.
func NewSpeechFallback(cfg *config.Config, source AudioSource, transcriber speech.Transcriber, runner audio.CommandRunner, logger *slog.Logger) (SpeechFallback, error) {
	pipeline, err := speech.NewPipeline(transcriber, speech.PipelineConfig{
		MaxConcurrent:   cfg.Speech.MaxConcurrent,
		SubmissionDelay: time.Duration(cfg.Speech.SubmissionDelay) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return &speechFallback{
		cfg:      cfg,
		source:   source,
		pipeline: pipeline,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "speech"),
	}, nil
}

func (f *speechFallback) Transcribe(ctx context.Context, video *platform.Video) (*captions.Result, error) {
	session, err := audio.NewSession(audio.Config{
		WorkDir:      f.cfg.Paths.WorkDir,
		FFmpegBinary: f.cfg.FFmpegBinary(),
		BitrateKbps:  f.cfg.Speech.AudioBitrate,
		ChunkSeconds: f.cfg.Speech.ChunkSeconds,
		Runner:       f.runner,
		Logger:       f.logger,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	streamURL, err := f.source.AudioStreamURL(ctx, video.ID)
	if err != nil {
		return nil, err
	}

	trackPath, err := session.AcquireAudio(ctx, streamURL)
	if err != nil {
		return nil, err
	}

	chunks, err := session.Split(ctx, trackPath, video.Duration)
	if err != nil {
		return nil, err
	}

	results, err := f.pipeline.Transcribe(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, services.Wrap(services.ErrTranscription, "speech", "stitch", "no chunk transcripts produced", nil)
	}

	starts := make([]float64, len(results))
	for i, result := range results {
		if result.ChunkIndex < len(chunks) {
			starts[i] = chunks[result.ChunkIndex].Start
		}
	}
	return &captions.Result{
		Document: speech.ToDocument(results, starts),
		Language: speech.Language(results),
		Source:   captions.SourceTranscription,
	}, nil
}
