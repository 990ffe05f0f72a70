package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

func testTrack(name string) *ghost.Track {
	ft := 0.1
	return &ghost.Track{
		Name:    name,
		MapName: "de_dust2",
		GameMod: "cstrike",
		Frames: []ghost.Frame{
			{Origin: ghost.Vec3{0, 0, 64}, FrameTime: &ft},
			{Origin: ghost.Vec3{10, 0, 64}, FrameTime: &ft},
		},
	}
}

func TestNew(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.NotNil(t, b.db)
}

func TestInitClose(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)

	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestSaveAndGetThroughEmbeddedBackend(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	id, err := b.SaveTrack(testTrack("run.dem"), "/demos/run.json", reconstruct.Report{Frames: 2, Duration: 0.2})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := b.GetTrack("run.dem")
	require.NoError(t, err)
	assert.Equal(t, "de_dust2", got.MapName)
	assert.Len(t, got.Frames, 2)
}

func TestDumpLoop_WritesSnapshot(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "tracks.db")
	b, err := New(Config{DumpInterval: 10 * time.Millisecond, DumpPath: dumpPath}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	_, err = b.SaveTrack(testTrack("run.dem"), "", reconstruct.Report{Frames: 2})
	require.NoError(t, err)

	// The loop should produce a snapshot within a few ticks.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(dumpPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no dump file appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	info, err := os.Stat(dumpPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestClose_WritesFinalDump(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "tracks.db")
	b, err := New(Config{DumpPath: dumpPath}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	_, err = b.SaveTrack(testTrack("run.dem"), "", reconstruct.Report{Frames: 2})
	require.NoError(t, err)

	require.NoError(t, b.Close())

	info, err := os.Stat(dumpPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
