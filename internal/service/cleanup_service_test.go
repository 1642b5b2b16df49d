package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	oldFile := filepath.Join(dir, "old.jpg")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(oldFile, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	freshFile := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))

	svc := NewCleanupService(dir, 24*time.Hour)
	removed, err := svc.Sweep(now)
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
}

func TestSweepMissingDir(t *testing.T) {
	svc := NewCleanupService(filepath.Join(t.TempDir(), "missing"), time.Hour)
	removed, err := svc.Sweep(time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
