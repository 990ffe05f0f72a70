package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoghost/replay/pkg/ghost"
)

func TestTranscript_AllEventKinds(t *testing.T) {
	weapon := "ak47"
	duration := 0.5
	track := &ghost.Track{
		Name: "events.dem",
		Frames: []ghost.Frame{
			{FrameTime: &duration, Extras: ghost.FrameExtras{
				Sounds: []ghost.SoundEvent{{Name: "weapons/ak47-1.wav"}},
			}},
			{FrameTime: &duration},
			{FrameTime: &duration, Extras: ghost.FrameExtras{
				Chat:         []ghost.ChatSegment{{Text: "Player1: "}, {Text: "rush B"}},
				WeaponChange: &weapon,
			}},
			{FrameTime: &duration, Extras: ghost.FrameExtras{
				Texts: []ghost.TextEvent{{Text: "Round draw!"}},
			}},
		},
	}

	entries, err := Transcript(track)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{Time: 0.5, Line: "sound weapons/ak47-1.wav"}, entries[0])
	assert.Equal(t, Entry{Time: 1.5, Line: "chat Player1: rush B"}, entries[1])
	assert.Equal(t, Entry{Time: 1.5, Line: "weapon ak47"}, entries[2])
	assert.Equal(t, Entry{Time: 2.0, Line: "text Round draw!"}, entries[3])
}

func TestTranscript_EmptyTrack(t *testing.T) {
	entries, err := Transcript(&ghost.Track{Name: "empty.dem"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Tracks without timing data still produce a transcript; every entry is
// stamped at zero because there is no clock to place them on.
func TestTranscript_NoTimingData(t *testing.T) {
	track := &ghost.Track{
		Name: "untimed.dem",
		Frames: []ghost.Frame{
			{Extras: ghost.FrameExtras{Sounds: []ghost.SoundEvent{{Name: "items/gunpickup2.wav"}}}},
		},
	}

	entries, err := Transcript(track)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Time)
	assert.Equal(t, "sound items/gunpickup2.wav", entries[0].Line)
}

// An override stamps entries at the fixed rate even when the stored
// durations disagree or are missing.
func TestTranscript_FrameTimeOverride(t *testing.T) {
	stored := 9.0
	track := &ghost.Track{
		Name: "timed.dem",
		Frames: []ghost.Frame{
			{FrameTime: &stored, Extras: ghost.FrameExtras{Sounds: []ghost.SoundEvent{{Name: "first.wav"}}}},
			{},
			{Extras: ghost.FrameExtras{Sounds: []ghost.SoundEvent{{Name: "third.wav"}}}},
		},
	}

	entries, err := Transcript(track, FrameTimeOverride(0.25))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Time: 0.25, Line: "sound first.wav"}, entries[0])
	assert.Equal(t, Entry{Time: 0.75, Line: "sound third.wav"}, entries[1])
}
