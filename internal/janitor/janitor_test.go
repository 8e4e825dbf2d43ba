package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vprofile-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

func writeAgedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweepDeletesOnlyFilesPastMaxAge(t *testing.T) {
	dir := t.TempDir()
	fresh := writeAgedFile(t, dir, "fresh.mp4", 47*time.Hour)
	stale := writeAgedFile(t, dir, "stale.mp4", 49*time.Hour)

	j := New([]string{dir}, 48*time.Hour)
	deleted := j.Sweep()

	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestSweepTreatsMissingDirAsWarning(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	j := New([]string{missing}, 48*time.Hour)
	assert.Equal(t, 0, j.Sweep())
}

func TestSweepIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	mtime := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(sub, mtime, mtime))
	writeAgedFile(t, dir, "stale.mp4", 72*time.Hour)

	j := New([]string{dir}, 48*time.Hour)

	assert.Equal(t, 1, j.Sweep())
	assert.DirExists(t, sub)
}

func TestSweepCoversMultipleDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeAgedFile(t, dirA, "a.mp4", 49*time.Hour)
	writeAgedFile(t, dirB, "b.mp4", 50*time.Hour)
	writeAgedFile(t, dirB, "keep.mp4", time.Hour)

	j := New([]string{dirA, dirB}, 48*time.Hour)
	assert.Equal(t, 2, j.Sweep())
}

func TestNewDefaultsMaxAge(t *testing.T) {
	j := New(nil, 0)
	assert.Equal(t, 48*time.Hour, j.maxAge)
}
