//go:build unix

package audio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"reelmark/internal/services"
)

func checkScratchSpace(dir string, needed uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("audio: statfs %s: %w", dir, err)
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < needed {
		return services.Wrap(services.ErrConfiguration, "audio", "preflight",
			fmt.Sprintf("%d MB free in work dir, need %d MB", available>>20, needed>>20), nil)
	}
	return nil
}
