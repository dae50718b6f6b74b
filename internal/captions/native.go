package captions

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"reelmark/internal/logging"
	"reelmark/internal/platform"
	"reelmark/internal/services"
	"reelmark/internal/vtt"
)

// TrackSource lists and downloads a video's native caption tracks.
type TrackSource interface {
	CaptionTracks(ctx context.Context, sourceID string) ([]platform.CaptionTrack, error)
	DownloadCaption(ctx context.Context, sourceID, trackID string) (string, error)
}

// NativeProvider fetches captions uploaded to or generated by the hosting
// platform. Manual tracks outrank auto-generated ones; within each tier
// the configured language priority list decides, falling back to the first
// track the platform offers.
type NativeProvider struct {
	source    TrackSource
	preferred []language.Tag
	logger    *slog.Logger
}

// NewNativeProvider builds a provider preferring the given BCP-47 language
// codes in order. Unparseable codes are skipped.
func NewNativeProvider(source TrackSource, preferredLanguages []string, logger *slog.Logger) *NativeProvider {
	preferred := make([]language.Tag, 0, len(preferredLanguages))
	for _, code := range preferredLanguages {
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		preferred = append(preferred, tag)
	}
	return &NativeProvider{
		source:    source,
		preferred: preferred,
		logger:    logging.NewComponentLogger(logger, "captions"),
	}
}

func (p *NativeProvider) Name() string { return "native" }

// Fetch downloads the best native caption track, manual tier first.
func (p *NativeProvider) Fetch(ctx context.Context, sourceID string, _ float64) (*Result, error) {
	tracks, err := p.source.CaptionTracks(ctx, sourceID)
	if err != nil {
		if services.IsRateLimited(err) || services.IsNotFound(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrCaptionExtraction, "captions", "list tracks", "list native tracks", err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	var manual, auto []platform.CaptionTrack
	for _, track := range tracks {
		switch track.Kind {
		case platform.TrackKindManual:
			manual = append(manual, track)
		case platform.TrackKindAuto:
			auto = append(auto, track)
		}
	}

	logger := logging.WithContext(ctx, p.logger)
	for _, tier := range []struct {
		tracks []platform.CaptionTrack
		source string
	}{
		{manual, SourceNativeManual},
		{auto, SourceNativeAuto},
	} {
		if len(tier.tracks) == 0 {
			continue
		}
		track := p.pickTrack(tier.tracks)
		document, err := p.source.DownloadCaption(ctx, sourceID, track.ID)
		if err != nil {
			if services.IsRateLimited(err) {
				return nil, err
			}
			logger.Warn("caption track download failed",
				logging.String("track", track.ID), logging.Error(err))
			continue
		}
		if len(vtt.Parse(document)) == 0 {
			logger.Warn("caption track unparseable, trying next tier",
				logging.String("track", track.ID),
				logging.String("language", track.Language))
			continue
		}
		return &Result{Document: document, Language: track.Language, Source: tier.source}, nil
	}
	return nil, nil
}

// NormalizeTag canonicalizes a language code to its BCP-47 form before
// storage. Unparseable codes pass through lowercased.
func NormalizeTag(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// pickTrack matches available track languages against the preference list
// and returns the best hit, defaulting to the platform's first track.
func (p *NativeProvider) pickTrack(tracks []platform.CaptionTrack) platform.CaptionTrack {
	if len(p.preferred) == 0 || len(tracks) == 1 {
		return tracks[0]
	}
	supported := make([]language.Tag, 0, len(tracks))
	indexes := make([]int, 0, len(tracks))
	for i, track := range tracks {
		tag, err := language.Parse(track.Language)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		indexes = append(indexes, i)
	}
	if len(supported) == 0 {
		return tracks[0]
	}
	matcher := language.NewMatcher(supported)
	_, index, confidence := matcher.Match(p.preferred...)
	if confidence == language.No {
		return tracks[0]
	}
	return tracks[indexes[index]]
}
