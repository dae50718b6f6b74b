package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"reelmark/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxRetryElapsed    = 45 * time.Second

	// TrackKindManual marks captions uploaded by the creator.
	TrackKindManual = "manual"
	// TrackKindAuto marks captions generated by the platform.
	TrackKindAuto = "auto"
)

// Config describes the platform client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the platform REST API.
type Client struct {
	apiKey  string
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("platform: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("platform: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("platform: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, http: client}, nil
}

// Video is the platform's metadata for one video.
type Video struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// CaptionTrack identifies one downloadable caption track.
type CaptionTrack struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Kind     string `json:"kind"`
}

// ChapterMarker is a platform-native chapter start point. The end of each
// chapter is derived by the caller from the next marker or the video
// duration.
type ChapterMarker struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
}

// Video fetches metadata for a video by its platform source id.
func (c *Client) Video(ctx context.Context, sourceID string) (*Video, error) {
	var out Video
	if err := c.getJSON(ctx, "videos/"+url.PathEscape(sourceID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptionTracks lists the caption tracks available for a video. An empty
// list is a valid response, not an error.
func (c *Client) CaptionTracks(ctx context.Context, sourceID string) ([]CaptionTrack, error) {
	var out struct {
		Tracks []CaptionTrack `json:"tracks"`
	}
	if err := c.getJSON(ctx, "videos/"+url.PathEscape(sourceID)+"/captions", nil, &out); err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// DownloadCaption fetches one caption track as a WebVTT document.
func (c *Client) DownloadCaption(ctx context.Context, sourceID, trackID string) (string, error) {
	endpoint := "videos/" + url.PathEscape(sourceID) + "/captions/" + url.PathEscape(trackID)
	params := url.Values{"format": []string{"vtt"}}
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Chapters fetches platform-native chapter markers. Videos without chapter
// metadata yield an empty slice.
func (c *Client) Chapters(ctx context.Context, sourceID string) ([]ChapterMarker, error) {
	var out struct {
		Chapters []ChapterMarker `json:"chapters"`
	}
	if err := c.getJSON(ctx, "videos/"+url.PathEscape(sourceID)+"/chapters", nil, &out); err != nil {
		return nil, err
	}
	return out.Chapters, nil
}

// AudioStreamURL resolves a time-limited URL for the lowest-bitrate audio
// rendition of a video, suitable for ffmpeg input.
func (c *Client) AudioStreamURL(ctx context.Context, sourceID string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	params := url.Values{"quality": []string{"lowest"}}
	if err := c.getJSON(ctx, "videos/"+url.PathEscape(sourceID)+"/audio", params, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", services.Wrap(services.ErrNotFound, "platform", "audio", "no audio rendition available", nil)
	}
	return out.URL, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrValidation, "platform", endpoint, "decode response", err)
	}
	return nil
}

// get performs one GET with bounded retry of transient failures. Permanent
// conditions (404, 429, other 4xx) surface immediately with their marker.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := c.baseURL.JoinPath(endpoint)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("platform: build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json, text/vtt")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("platform: %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if readErr != nil {
			return fmt.Errorf("platform: read response: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body = payload
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(services.Wrap(services.ErrNotFound, "platform", endpoint, "video unavailable", nil))
		case resp.StatusCode == http.StatusTooManyRequests:
			return backoff.Permanent(services.Wrap(services.ErrRateLimited, "platform", endpoint, "throttled by platform", nil))
		case resp.StatusCode >= 500:
			return fmt.Errorf("platform: %s: status %d", endpoint, resp.StatusCode)
		default:
			return backoff.Permanent(services.Wrap(services.ErrValidation, "platform", endpoint,
				fmt.Sprintf("unexpected status %d", resp.StatusCode), nil))
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = maxRetryElapsed
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		// Retry unwraps Permanent errors, so classified failures pass
		// through with their marker intact.
		if isClassified(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrTransient, "platform", endpoint, "request failed after retries", err)
	}
	return body, nil
}

func isClassified(err error) bool {
	return errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrRateLimited) ||
		errors.Is(err, services.ErrValidation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
