package speech

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"reelmark/internal/audio"
	"reelmark/internal/logging"
	"reelmark/internal/ratelimit"
	"reelmark/internal/services"
	"reelmark/internal/vtt"
)

const (
	defaultMaxConcurrent   = 3
	defaultSubmissionDelay = 3 * time.Second
)

// Transcriber is the per-chunk capability the pipeline drives.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Pipeline submits audio chunks to a Transcriber under its own concurrency
// gate, spacing successive submissions by a fixed delay. The gate and
// delay are independent of the platform rate gate: the speech provider
// enforces a separate limit.
type Pipeline struct {
	client Transcriber
	gate   *ratelimit.Gate
	delay  time.Duration
	logger *slog.Logger
}

// PipelineConfig tunes a Pipeline. A MaxConcurrent of zero or less selects
// the default. SubmissionDelay falls back to the default only when negative;
// zero is honored as "no spacing".
type PipelineConfig struct {
	MaxConcurrent   int
	SubmissionDelay time.Duration
	Logger          *slog.Logger
}

// NewPipeline builds a Pipeline over the given transcriber.
func NewPipeline(client Transcriber, cfg PipelineConfig) (*Pipeline, error) {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	gate, err := ratelimit.NewGate(maxConcurrent)
	if err != nil {
		return nil, err
	}
	delay := cfg.SubmissionDelay
	if delay < 0 {
		delay = defaultSubmissionDelay
	}
	return &Pipeline{
		client: client,
		gate:   gate,
		delay:  delay,
		logger: logging.NewComponentLogger(cfg.Logger, "speech"),
	}, nil
}

// Transcribe runs every chunk through the transcriber and returns the
// results ordered by chunk index regardless of completion order. The first
// chunk failure cancels the remaining submissions and fails the run; the
// caller decides whether a rate-limited run is worth repeating later.
func (p *Pipeline) Transcribe(ctx context.Context, chunks []audio.Chunk) ([]Result, error) {
	if len(chunks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "speech", "transcribe", "no chunks to transcribe", nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*Result, len(chunks))
	errs := make(chan error, len(chunks))
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		if i > 0 {
			// Fixed spacing between submissions, even when a permit is
			// immediately available.
			if err := ratelimit.SleepWithContext(ctx, p.delay); err != nil {
				break
			}
		}
		if err := p.gate.Acquire(ctx); err != nil {
			break
		}

		wg.Add(1)
		go func(slot int, chunk audio.Chunk) {
			defer wg.Done()
			defer p.gate.Release()

			logger := logging.WithContext(ctx, p.logger)
			logger.Debug("submitting chunk", logging.Int(logging.FieldChunk, chunk.Index))

			result, err := p.client.Transcribe(ctx, chunk.Path)
			if err != nil {
				if services.IsRateLimited(err) {
					logger.Warn("speech provider throttled", logging.Int(logging.FieldChunk, chunk.Index))
				} else {
					logger.Warn("chunk transcription failed",
						logging.Int(logging.FieldChunk, chunk.Index), logging.Error(err))
				}
				errs <- err
				cancel()
				return
			}
			result.ChunkIndex = chunk.Index
			results[slot] = result
		}(i, chunk)
	}

	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(results))
	for _, result := range results {
		if result != nil {
			out = append(out, *result)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ChunkIndex < out[b].ChunkIndex })
	return out, nil
}

// ToDocument converts chunk-relative results into one absolute cue track.
// chunkStarts maps each result (by position) to the chunk's start offset
// in the full video.
func ToDocument(results []Result, chunkStarts []float64) string {
	documents := make([]string, 0, len(results))
	offsets := make([]float64, 0, len(results))
	for i, result := range results {
		segments := make([]vtt.Segment, 0, len(result.Segments))
		for _, seg := range result.Segments {
			if seg.End <= seg.Start {
				continue
			}
			segments = append(segments, vtt.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
		documents = append(documents, vtt.Generate(segments))
		if i < len(chunkStarts) {
			offsets = append(offsets, chunkStarts[i])
		} else {
			offsets = append(offsets, 0)
		}
	}
	return vtt.Merge(documents, offsets)
}

// Language picks the detected language of a run: the first non-empty
// per-chunk detection.
func Language(results []Result) string {
	for _, result := range results {
		if result.Language != "" {
			return result.Language
		}
	}
	return ""
}
