// Package playback drives a reconstructed track against a viewer clock.
// A Player turns "what time is it" into "where is the ghost and what just
// happened": each Advance returns the posed frame for the clock plus every
// discrete event crossed since the previous call, so one-shot events
// (sounds, chat, weapon changes) fire exactly once no matter how unevenly
// the caller ticks.
package playback

import (
	"errors"

	"github.com/demoghost/replay/pkg/ghost"
)

// Mode selects how a Player poses the ghost between stored frames.
type Mode int

const (
	// ModeInterpolated poses the camera between stored frames based on
	// elapsed time, like engine demo playback.
	ModeInterpolated Mode = iota

	// ModeFrameAccurate holds each stored frame verbatim until the clock
	// crosses the next frame boundary. No interpolation.
	ModeFrameAccurate

	// ModeImmediate steps one stored frame per Advance call and ignores
	// the clock entirely.
	ModeImmediate
)

// Update is the result of one Advance.
type Update struct {
	// Frame is the posed frame for the query. In ModeInterpolated its
	// origin, view angles, and FOV are synthesized; discrete fields come
	// from the stored frame at Index.
	Frame ghost.Frame

	// Index is the stored frame the pose is anchored to.
	Index int

	// Events holds the extras of every stored frame crossed since the
	// previous Advance, oldest first. Frames without events are omitted.
	Events []ghost.FrameExtras
}

// Option configures a Player.
type Option func(*Player)

// FrameTimeOverride replaces every frame's stored duration with a fixed
// per-frame length, for tracks recorded at a known tick rate or with no
// timing data at all.
func FrameTimeOverride(seconds float64) Option {
	return func(p *Player) {
		p.override = &seconds
	}
}

// Player walks a track under a caller-supplied clock. It is stateful and
// not safe for concurrent use; each playback session owns its own Player.
type Player struct {
	track    *ghost.Track
	mode     Mode
	override *float64

	started   bool
	finished  bool
	lastTime  float64
	lastIndex int
	lastPose  ghost.Frame
}

// NewPlayer creates a Player over track. The track is read, never written.
func NewPlayer(track *ghost.Track, mode Mode, opts ...Option) *Player {
	p := &Player{
		track:     track,
		mode:      mode,
		lastIndex: -1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Advance moves playback to the clock value now (seconds) and returns the
// resulting update. Re-querying the same clock returns the same pose with
// no events, so a paused viewer does not re-fire one-shots.
//
// ghost.ErrEndOfStream marks normal completion; after it the Player stays
// finished until Rewind. ghost.ErrNoTimingData is returned for tracks with
// no durations when no FrameTimeOverride was set.
func (p *Player) Advance(now float64) (Update, error) {
	if p.mode == ModeImmediate {
		return p.step()
	}
	return p.seek(now)
}

// Finished reports whether playback ran past the last frame boundary.
func (p *Player) Finished() bool {
	return p.finished
}

// Rewind resets the Player to the start of the track. The next Advance
// fires the first frame's events again.
func (p *Player) Rewind() {
	p.started = false
	p.finished = false
	p.lastTime = 0
	p.lastIndex = -1
	p.lastPose = ghost.Frame{}
}

// seek services ModeInterpolated and ModeFrameAccurate.
func (p *Player) seek(now float64) (Update, error) {
	if p.started && now == p.lastTime {
		return Update{Frame: p.lastPose, Index: p.lastIndex}, nil
	}

	frame, err := p.track.FrameAt(now, p.override)
	if err != nil {
		if errors.Is(err, ghost.ErrEndOfStream) {
			p.finished = true
		}
		return Update{}, err
	}

	// The walk reports the frame closing the bracketed span; the pose is
	// anchored to the frame before it.
	index := p.track.IndexAt(now, p.override)
	if index > 0 {
		index--
	}

	if p.mode == ModeFrameAccurate {
		frame = p.track.Frames[index]
	}

	events := p.eventsUpTo(index)

	p.started = true
	p.lastTime = now
	p.lastIndex = index
	p.lastPose = frame

	return Update{Frame: frame, Index: index, Events: events}, nil
}

// step services ModeImmediate: one stored frame per call.
func (p *Player) step() (Update, error) {
	next := p.lastIndex + 1
	if next >= len(p.track.Frames) {
		p.finished = true
		return Update{}, ghost.ErrEndOfStream
	}

	frame := p.track.Frames[next]

	var events []ghost.FrameExtras
	if !frame.Extras.Empty() {
		events = append(events, frame.Extras)
	}

	p.started = true
	p.lastIndex = next
	p.lastPose = frame

	return Update{Frame: frame, Index: next, Events: events}, nil
}

// eventsUpTo collects the extras of every frame crossed moving the anchor
// from the previous index to index, oldest first. Landing on the same
// index fires nothing; seeking backwards fires only the landing frame.
func (p *Player) eventsUpTo(index int) []ghost.FrameExtras {
	if p.started && index == p.lastIndex {
		return nil
	}

	from := p.lastIndex + 1
	if from > index {
		from = index
	}

	var events []ghost.FrameExtras
	for i := from; i <= index; i++ {
		if extras := p.track.Frames[i].Extras; !extras.Empty() {
			events = append(events, extras)
		}
	}
	return events
}
