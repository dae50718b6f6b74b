package enrichment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"reelmark/internal/services"
)

// ErrAlreadyRunning means another invocation holds a video's lock.
var ErrAlreadyRunning = errors.New("enrichment already running for video")

// videoLock serializes enrichment invocations per video across processes
// with an advisory file lock. The record is single-writer; without the
// lock two worker processes could race on the same video id.
type videoLock struct {
	lock *flock.Flock
}

// acquireVideoLock takes the per-video lock, failing fast with
// ErrAlreadyRunning when it is held elsewhere.
func acquireVideoLock(ctx context.Context, lockDir, videoID string) (*videoLock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrichment", "lock", "create lock directory", err)
	}
	path := filepath.Join(lockDir, fmt.Sprintf("enrich-%s.lock", sanitizeLockName(videoID)))
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "enrichment", "lock", "acquire video lock", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, videoID)
	}
	return &videoLock{lock: lock}, nil
}

func (l *videoLock) Release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}

func sanitizeLockName(videoID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, videoID)
}
