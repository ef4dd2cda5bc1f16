package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hifihub/hubd/internal/player/playertest"
)

// writeTrack creates an empty media file under root and returns its path.
func writeTrack(t *testing.T, root, name string) string {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func TestWriteAndRead(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	require.NoError(t, s.Write([]string{"/music/a.flac", "/music/b.flac"}))
	assert.Equal(t, []string{"/music/a.flac", "/music/b.flac"}, s.Read())
}

func TestWriteNilBecomesEmptyList(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	require.NoError(t, s.Write(nil))
	data, err := os.ReadFile(s.JSONPath())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestReadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, "/srv/music")

	assert.Nil(t, s.Read())

	require.NoError(t, os.WriteFile(s.JSONPath(), []byte("{broken"), 0o644))
	assert.Nil(t, s.Read())
}

func TestResolve(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	abs, ok := s.Resolve("/music/a.flac")
	assert.True(t, ok)
	assert.Equal(t, "/music/a.flac", abs)

	abs, ok = s.Resolve("album/b.flac")
	assert.True(t, ok)
	assert.Equal(t, "/srv/music/album/b.flac", abs)

	_, ok = s.Resolve("http://radio.example/stream")
	assert.False(t, ok)
	_, ok = s.Resolve("https://radio.example/stream")
	assert.False(t, ok)
	_, ok = s.Resolve("")
	assert.False(t, ok)
}

func TestWriteLinksCountsCreatedAndSkipped(t *testing.T) {
	musicRoot := t.TempDir()
	s := NewStore(t.TempDir(), musicRoot)

	a := writeTrack(t, musicRoot, "a.flac")
	b := writeTrack(t, musicRoot, "album/b.flac")

	stats := s.WriteLinks([]string{a, "album/b.flac", "missing.flac", "http://radio.example/stream"})
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 0, stats.Removed)
	assert.Equal(t, 2, stats.Skipped)

	entries, err := os.ReadDir(s.LinkDir())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "000001 - a.flac", entries[0].Name())
	assert.Equal(t, "000002 - b.flac", entries[1].Name())

	target, err := os.Readlink(filepath.Join(s.LinkDir(), entries[1].Name()))
	require.NoError(t, err)
	assert.Equal(t, b, target)
}

func TestWriteLinksRegeneratesFully(t *testing.T) {
	musicRoot := t.TempDir()
	s := NewStore(t.TempDir(), musicRoot)

	a := writeTrack(t, musicRoot, "a.flac")
	b := writeTrack(t, musicRoot, "b.flac")

	first := s.WriteLinks([]string{a, b})
	assert.Equal(t, 2, first.Created)

	second := s.WriteLinks([]string{b})
	assert.Equal(t, 1, second.Created)
	assert.Equal(t, 2, second.Removed)

	entries, err := os.ReadDir(s.LinkDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "000001 - b.flac", entries[0].Name())
}

func TestReconcileFromPlayer(t *testing.T) {
	musicRoot := t.TempDir()
	s := NewStore(t.TempDir(), musicRoot)

	a := writeTrack(t, musicRoot, "a.flac")
	b := writeTrack(t, musicRoot, "b.flac")
	fake := playertest.New()
	fake.Queue = []string{a, b, "gone.flac"}

	stats, err := s.Reconcile(fake)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{a, b, "gone.flac"}, s.Read())

	entries, err := os.ReadDir(s.LinkDir())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReset(t *testing.T) {
	musicRoot := t.TempDir()
	s := NewStore(t.TempDir(), musicRoot)

	a := writeTrack(t, musicRoot, "a.flac")
	require.NoError(t, s.Write([]string{a}))
	s.WriteLinks([]string{a})

	stats, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, s.Read())

	entries, err := os.ReadDir(s.LinkDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSyncStatus(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	fake := playertest.New()
	fake.Queue = []string{"a.flac", "b.flac"}
	require.NoError(t, s.Write([]string{"a.flac", "b.flac"}))

	stats, err := s.SyncStatus(fake)
	require.NoError(t, err)
	assert.True(t, stats.Match)
	assert.Equal(t, 2, stats.QueueLen)
	assert.Equal(t, 2, stats.PlayerLen)
	assert.Equal(t, 0, stats.Diff)

	// Same length, different contents.
	require.NoError(t, s.Write([]string{"a.flac", "c.flac"}))
	stats, err = s.SyncStatus(fake)
	require.NoError(t, err)
	assert.False(t, stats.Match)
	assert.Equal(t, 0, stats.Diff)

	// Length mismatch.
	require.NoError(t, s.Write([]string{"a.flac"}))
	stats, err = s.SyncStatus(fake)
	require.NoError(t, err)
	assert.False(t, stats.Match)
	assert.Equal(t, 1, stats.Diff)
}

func TestApplyPreservesPlaybackState(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	// Playing b.flac; the new list still contains it, so playback resumes
	// from its new position.
	fake := playertest.New()
	fake.Queue = []string{"a.flac", "b.flac"}
	fake.Pos = 1
	fake.State = "play"

	require.NoError(t, s.Apply(fake, []string{"c.flac", "b.flac", "a.flac"}))
	assert.Equal(t, []string{"c.flac", "b.flac", "a.flac"}, fake.Queue)
	assert.Equal(t, "play", fake.State)
	assert.Equal(t, 1, fake.Pos)
}

func TestApplyPausedStaysPaused(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	fake := playertest.New()
	fake.Queue = []string{"a.flac"}
	fake.Pos = 0
	fake.State = "pause"

	require.NoError(t, s.Apply(fake, []string{"a.flac", "b.flac"}))
	assert.Equal(t, "pause", fake.State)
	assert.Equal(t, 0, fake.Pos)
}

func TestApplyStoppedStaysStopped(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	fake := playertest.New()
	fake.Queue = []string{"a.flac"}
	fake.State = "stop"

	require.NoError(t, s.Apply(fake, []string{"b.flac"}))
	assert.Equal(t, "stop", fake.State)
	assert.Equal(t, []string{"b.flac"}, fake.Queue)
}

func TestApplyEmptyListClearsPlayer(t *testing.T) {
	s := NewStore(t.TempDir(), "/srv/music")

	fake := playertest.New()
	fake.Queue = []string{"a.flac"}
	fake.Pos = 0
	fake.State = "play"

	require.NoError(t, s.Apply(fake, nil))
	assert.Empty(t, fake.Queue)
	assert.Equal(t, "stop", fake.State)
}
