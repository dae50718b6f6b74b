package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelmark/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// maxUploadBytes is the provider's hard per-file cap. Chunking keeps files
// well under this by construction; the check here is a final guard against
// misconfiguration.
const maxUploadBytes = 25 << 20

// Config describes the speech client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client wraps the speech-to-text REST API.
type Client struct {
	apiKey  string
	model   string
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("speech: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("speech: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("speech: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		apiKey:  apiKey,
		model:   strings.TrimSpace(cfg.Model),
		baseURL: baseURL,
		http:    client,
	}, nil
}

// Segment is one time-coded span of a chunk transcript, chunk-relative
// seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the transcript for one audio chunk.
type Result struct {
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Segments   []Segment `json:"segments"`
	ChunkIndex int       `json:"-"`
}

// Transcribe submits one audio file and returns its transcript. Rate-limit
// responses surface as ErrRateLimited; everything else the provider
// rejects is ErrTranscription.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit", "open chunk file", err)
	}
	if info.Size() > maxUploadBytes {
		return nil, services.Wrap(services.ErrValidation, "speech", "submit",
			fmt.Sprintf("chunk file is %d MB, provider cap is %d MB", info.Size()>>20, maxUploadBytes>>20), nil)
	}

	body, contentType, err := c.buildForm(audioPath)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL.JoinPath("audio", "transcriptions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit", "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, services.Wrap(services.ErrRateLimited, "speech", "submit", "throttled by provider", nil)
	default:
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit",
			fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(payload, 200)), nil)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "speech", "submit", "decode response", err)
	}
	return &result, nil
}

func (c *Client) buildForm(audioPath string) (*bytes.Buffer, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "open chunk file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "build form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "copy chunk file", err)
	}
	if c.model != "" {
		if err := writer.WriteField("model", c.model); err != nil {
			return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "build form", err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "build form", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", services.Wrap(services.ErrTranscription, "speech", "submit", "finish form", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func truncate(data []byte, limit int) string {
	text := strings.TrimSpace(string(data))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
