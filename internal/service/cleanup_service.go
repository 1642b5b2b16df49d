package service

import (
	"os"
	"path/filepath"
	"time"

	"lifecoach/internal/logging"
)

// CleanupService prunes downloaded media files past the retention window.
type CleanupService struct {
	dir       string
	retention time.Duration
}

func NewCleanupService(dir string, retention time.Duration) *CleanupService {
	return &CleanupService{dir: dir, retention: retention}
}

// Sweep removes files older than the retention window. Missing dirs and
// individual remove failures are not fatal; media files are disposable.
func (s *CleanupService) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logging.WithComponent("cleanup").WithError(err).WithField("path", path).
				Warn("failed to remove media file")
			continue
		}
		removed++
	}
	return removed, nil
}
