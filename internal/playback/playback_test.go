package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoghost/replay/pkg/ghost"
)

// fourFrameTrack builds frames one second apart at x = 0, 10, 20, 30. The
// first three frames carry one sound each ("s0".."s2"); the last is silent.
func fourFrameTrack() *ghost.Track {
	track := &ghost.Track{Name: "walk.dem"}
	for i := 0; i < 4; i++ {
		duration := 1.0
		frame := ghost.Frame{
			Origin:    ghost.Vec3{float32(i) * 10, 0, 0},
			FrameTime: &duration,
		}
		if i < 3 {
			frame.Extras.Sounds = []ghost.SoundEvent{{Name: "s" + string(rune('0'+i)), Volume: 1}}
		}
		track.Frames = append(track.Frames, frame)
	}
	return track
}

func soundNames(events []ghost.FrameExtras) []string {
	var names []string
	for _, extras := range events {
		for _, sound := range extras.Sounds {
			names = append(names, sound.Name)
		}
	}
	return names
}

func TestPlayerInterpolatedAdvance(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	update, err := player.Advance(1.5)
	require.NoError(t, err)

	assert.InDelta(t, float32(5), update.Frame.Origin[0], 0.001)
	assert.Equal(t, 0, update.Index)
	assert.Equal(t, []string{"s0"}, soundNames(update.Events))
}

func TestPlayerPauseFiresNothing(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	first, err := player.Advance(1.5)
	require.NoError(t, err)
	require.NotEmpty(t, first.Events)

	paused, err := player.Advance(1.5)
	require.NoError(t, err)

	assert.Empty(t, paused.Events)
	assert.Equal(t, first.Frame, paused.Frame)
	assert.Equal(t, first.Index, paused.Index)
}

func TestPlayerCatchesUpMissedEvents(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	_, err := player.Advance(1.5)
	require.NoError(t, err)

	// Jumping two spans ahead must fire everything in between, in order.
	update, err := player.Advance(3.7)
	require.NoError(t, err)

	assert.InDelta(t, float32(27), update.Frame.Origin[0], 0.001)
	assert.Equal(t, 2, update.Index)
	assert.Equal(t, []string{"s1", "s2"}, soundNames(update.Events))
}

func TestPlayerHoldingSameSpanFiresOnce(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	first, err := player.Advance(1.2)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, soundNames(first.Events))

	// Still inside the same span: the pose moves, the events do not repeat.
	second, err := player.Advance(1.8)
	require.NoError(t, err)
	assert.Equal(t, first.Index, second.Index)
	assert.Empty(t, second.Events)
}

func TestPlayerEndOfStream(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	_, err := player.Advance(4.0)
	assert.ErrorIs(t, err, ghost.ErrEndOfStream)
	assert.True(t, player.Finished())
}

func TestPlayerRewind(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	_, err := player.Advance(9.0)
	require.ErrorIs(t, err, ghost.ErrEndOfStream)

	player.Rewind()
	assert.False(t, player.Finished())

	update, err := player.Advance(0.2)
	require.NoError(t, err)
	assert.Equal(t, 0, update.Index)
	assert.Equal(t, []string{"s0"}, soundNames(update.Events))
}

func TestPlayerScrubBackwards(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeInterpolated)

	_, err := player.Advance(3.7)
	require.NoError(t, err)

	// Seeking back re-fires only the landing frame.
	update, err := player.Advance(1.5)
	require.NoError(t, err)
	assert.Equal(t, 0, update.Index)
	assert.Equal(t, []string{"s0"}, soundNames(update.Events))
}

func TestPlayerFrameAccurate(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeFrameAccurate)

	update, err := player.Advance(1.5)
	require.NoError(t, err)

	// Pose snaps to the stored frame, no interpolation.
	assert.Equal(t, float32(0), update.Frame.Origin[0])
	assert.Equal(t, 0, update.Index)
	assert.Equal(t, []string{"s0"}, soundNames(update.Events))
}

func TestPlayerImmediateStepsPerCall(t *testing.T) {
	player := NewPlayer(fourFrameTrack(), ModeImmediate)

	for i := 0; i < 4; i++ {
		update, err := player.Advance(0)
		require.NoError(t, err)
		assert.Equal(t, i, update.Index)
		assert.Equal(t, float32(i)*10, update.Frame.Origin[0])
	}

	_, err := player.Advance(0)
	assert.ErrorIs(t, err, ghost.ErrEndOfStream)
	assert.True(t, player.Finished())
}

func TestPlayerNoTimingData(t *testing.T) {
	track := &ghost.Track{Frames: []ghost.Frame{{}, {Origin: ghost.Vec3{10, 0, 0}}}}

	player := NewPlayer(track, ModeInterpolated)
	_, err := player.Advance(0.5)
	assert.ErrorIs(t, err, ghost.ErrNoTimingData)
	assert.False(t, player.Finished())

	// A fixed override rescues tracks recorded without durations.
	player = NewPlayer(track, ModeInterpolated, FrameTimeOverride(1.0))
	update, err := player.Advance(1.5)
	require.NoError(t, err)
	assert.InDelta(t, float32(5), update.Frame.Origin[0], 0.001)
}

func TestPlayerEmptyTrack(t *testing.T) {
	empty := &ghost.Track{}

	_, err := NewPlayer(empty, ModeInterpolated).Advance(0)
	assert.ErrorIs(t, err, ghost.ErrEndOfStream)

	_, err = NewPlayer(empty, ModeImmediate).Advance(0)
	assert.ErrorIs(t, err, ghost.ErrEndOfStream)
}
