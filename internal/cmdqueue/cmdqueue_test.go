package cmdqueue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueClaimOrder(t *testing.T) {
	q := New(t.TempDir())

	n, err := q.Enqueue([]string{"add /music/a.flac", "add /music/b.flac", "play 0"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines, err := q.Claim()
	require.NoError(t, err)
	assert.Equal(t, []string{"add /music/a.flac", "add /music/b.flac", "play 0"}, lines)

	// The claim consumed the file; a second claim finds nothing.
	lines, err = q.Claim()
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestClaimMissingFile(t *testing.T) {
	q := New(t.TempDir())

	lines, err := q.Claim()
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestEnqueueSanitizesLines(t *testing.T) {
	q := New(t.TempDir())

	n, err := q.Enqueue([]string{"  pause \r\n", "volume\n50"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines, err := q.Claim()
	require.NoError(t, err)
	assert.Equal(t, []string{"pause", "volume 50"}, lines)
}

func TestEnqueueRejectsEmpty(t *testing.T) {
	q := New(t.TempDir())

	_, err := q.Enqueue([]string{"   ", "\r\n"})
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = q.Enqueue(nil)
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestClaimSkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	q := New(dir)

	content := "play\n\n# operator note\nstop\n"
	require.NoError(t, os.WriteFile(q.QueuePath(), []byte(content), 0o644))

	lines, err := q.Claim()
	require.NoError(t, err)
	assert.Equal(t, []string{"play", "stop"}, lines)
}

func TestClaimLeavesNoResidue(t *testing.T) {
	dir := t.TempDir()
	q := New(dir)

	_, err := q.Enqueue([]string{"next"})
	require.NoError(t, err)
	_, err = q.Claim()
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".txt" && e.Name() != "cmd.txt" {
			t.Fatalf("claimed file left behind: %s", e.Name())
		}
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New(t.TempDir())

	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := q.Enqueue([]string{fmt.Sprintf("add /music/%d-%d.flac", p, i)})
				if err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}(p)
	}

	var got []string
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for {
		lines, err := q.Claim()
		require.NoError(t, err)
		got = append(got, lines...)
		select {
		case <-done:
			lines, err := q.Claim()
			require.NoError(t, err)
			got = append(got, lines...)
			// Every command is delivered exactly once, none torn or lost.
			want := make([]string, 0, producers*perProducer)
			for p := 0; p < producers; p++ {
				for i := 0; i < perProducer; i++ {
					want = append(want, fmt.Sprintf("add /music/%d-%d.flac", p, i))
				}
			}
			sort.Strings(got)
			sort.Strings(want)
			assert.Equal(t, want, got)
			return
		default:
		}
	}
}

func TestEnqueuePreservesPerProducerOrder(t *testing.T) {
	q := New(t.TempDir())

	_, err := q.Enqueue([]string{"clear"})
	require.NoError(t, err)
	_, err = q.Enqueue([]string{"add /music/x.flac", "play 0"})
	require.NoError(t, err)

	lines, err := q.Claim()
	require.NoError(t, err)
	assert.Equal(t, []string{"clear", "add /music/x.flac", "play 0"}, lines)
}
