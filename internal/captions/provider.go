package captions

import (
	"context"
	"log/slog"

	"reelmark/internal/logging"
	"reelmark/internal/services"
)

// Provenance tags recorded alongside a caption document.
const (
	SourceNativeManual  = "native-manual"
	SourceNativeAuto    = "native-auto"
	SourceTranscription = "speech-transcription"
)

// Result is one usable caption acquisition.
type Result struct {
	Document string
	Language string
	Source   string
}

// Provider is one way of obtaining captions for a video. A provider
// returns (nil, nil) when it has nothing to offer; errors mean the
// attempt itself failed.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, sourceID string, durationHint float64) (*Result, error)
}

// Chain tries providers in order until one yields a result. Provider
// errors are logged and swallowed so a broken source never takes down
// the whole acquisition.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain builds a Chain over the given providers, tried in order.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    logging.NewComponentLogger(logger, "captions"),
	}
}

// Fetch returns the first provider result, or (nil, nil) when every
// provider came up empty or failed.
func (c *Chain) Fetch(ctx context.Context, sourceID string, durationHint float64) (*Result, error) {
	logger := logging.WithContext(ctx, c.logger)
	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := provider.Fetch(ctx, sourceID, durationHint)
		if err != nil {
			if services.IsRateLimited(err) {
				logger.Warn("caption provider rate limited",
					logging.String(logging.FieldProvider, provider.Name()))
			} else {
				logger.Warn("caption provider failed",
					logging.String(logging.FieldProvider, provider.Name()), logging.Error(err))
			}
			continue
		}
		if result == nil || result.Document == "" {
			logger.Debug("caption provider returned nothing",
				logging.String(logging.FieldProvider, provider.Name()))
			continue
		}
		logger.Info("captions acquired",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.String("source", result.Source),
			logging.String("language", result.Language))
		return result, nil
	}
	return nil, nil
}
