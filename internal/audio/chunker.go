package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelmark/internal/logging"
	"reelmark/internal/services"
)

const (
	// minScratchBytes is the free space required in the work area before a
	// session will download audio.
	minScratchBytes = 512 << 20

	defaultBitrateKbps = 64
	defaultChunkSecs   = 600
)

// Chunk is one bounded slice of the audio track. Start and End are seconds
// relative to the whole track.
type Chunk struct {
	Path  string
	Index int
	Start float64
	End   float64
}

// CommandRunner abstracts process execution so tests can fake ffmpeg.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Config describes a chunking session.
type Config struct {
	// WorkDir is the parent directory for the session scratch area.
	WorkDir string
	// FFmpegBinary defaults to "ffmpeg".
	FFmpegBinary string
	// BitrateKbps is the target audio bitrate; with ChunkSeconds it bounds
	// chunk file size by construction.
	BitrateKbps  int
	ChunkSeconds int
	Runner       CommandRunner
	Logger       *slog.Logger
}

// Session owns one scratch directory for the duration of a chunking run.
type Session struct {
	dir          string
	ffmpeg       string
	bitrateKbps  int
	chunkSeconds int
	runner       CommandRunner
	logger       *slog.Logger
	closed       bool
}

// NewSession creates the scratch directory and verifies it has room to work.
func NewSession(cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.WorkDir) == "" {
		return nil, errors.New("audio: work dir is required")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("audio: ensure work dir: %w", err)
	}
	if err := checkScratchSpace(cfg.WorkDir, minScratchBytes); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(cfg.WorkDir, "chunks-*")
	if err != nil {
		return nil, fmt.Errorf("audio: create scratch dir: %w", err)
	}

	ffmpeg := cfg.FFmpegBinary
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	bitrate := cfg.BitrateKbps
	if bitrate <= 0 {
		bitrate = defaultBitrateKbps
	}
	chunkSeconds := cfg.ChunkSeconds
	if chunkSeconds <= 0 {
		chunkSeconds = defaultChunkSecs
	}

	session := &Session{
		dir:          dir,
		ffmpeg:       ffmpeg,
		bitrateKbps:  bitrate,
		chunkSeconds: chunkSeconds,
		runner:       cfg.Runner,
		logger:       logging.NewComponentLogger(cfg.Logger, "audio"),
	}
	return session, nil
}

// Close removes the scratch directory and everything in it. Safe to call
// more than once; callers defer it immediately after NewSession so cleanup
// runs on every exit path.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("audio: remove scratch dir: %w", err)
	}
	return nil
}

// Dir exposes the scratch directory for downstream consumers that need a
// co-located output location.
func (s *Session) Dir() string {
	return s.dir
}

// AcquireAudio downloads the audio rendition behind streamURL into the
// scratch area at the session bitrate, mono. A run that produces no file
// is reported as not-found.
func (s *Session) AcquireAudio(ctx context.Context, streamURL string) (string, error) {
	dest := filepath.Join(s.dir, "track.m4a")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", streamURL,
		"-vn",
		"-ac", "1",
		"-b:a", fmt.Sprintf("%dk", s.bitrateKbps),
		dest,
	}
	if err := s.run(ctx, args...); err != nil {
		return "", services.Wrap(services.ErrTransient, "audio", "acquire", "download audio track", err)
	}
	info, err := os.Stat(dest)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrNotFound, "audio", "acquire", "no audio produced", nil)
	}
	s.logger.Debug("audio track acquired",
		logging.String("path", dest),
		logging.Int64("bytes", info.Size()))
	return dest, nil
}

// Split cuts the acquired track into fixed windows of the session chunk
// duration; the last window may be shorter. totalDuration is the track
// length in seconds.
func (s *Session) Split(ctx context.Context, path string, totalDuration float64) ([]Chunk, error) {
	if totalDuration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "audio", "split", "track duration unknown", nil)
	}

	window := float64(s.chunkSeconds)
	var chunks []Chunk
	for index := 0; ; index++ {
		start := float64(index) * window
		if start >= totalDuration {
			break
		}
		end := start + window
		if end > totalDuration {
			end = totalDuration
		}

		dest := filepath.Join(s.dir, fmt.Sprintf("chunk_%03d.m4a", index))
		args := []string{
			"-y",
			"-hide_banner",
			"-loglevel", "error",
			"-ss", strconv.FormatFloat(start, 'f', 3, 64),
			"-t", strconv.FormatFloat(end-start, 'f', 3, 64),
			"-i", path,
			"-c", "copy",
			dest,
		}
		if err := s.run(ctx, args...); err != nil {
			return nil, services.Wrap(services.ErrTransient, "audio", "split",
				fmt.Sprintf("cut chunk %d", index), err)
		}
		chunks = append(chunks, Chunk{Path: dest, Index: index, Start: start, End: end})
	}

	s.logger.Debug("audio track split", logging.Int("chunks", len(chunks)))
	return chunks, nil
}

func (s *Session) run(ctx context.Context, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, s.ffmpeg, args...)
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.ffmpeg, err, strings.TrimSpace(string(output)))
	}
	return nil
}
