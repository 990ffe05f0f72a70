package ghost

import (
	"errors"
	"math"
)

// UnknownGameMod is used when a recording does not name its game directory.
const UnknownGameMod = "unknown"

var (
	// ErrEndOfStream reports that the queried time lies at or past the last
	// frame boundary. It is the expected way for callers to detect that
	// playback has finished, not a failure.
	ErrEndOfStream = errors.New("ghost: end of stream")

	// ErrNoTimingData reports that no frame carries a duration and no
	// override was supplied, so times cannot be accumulated.
	ErrNoTimingData = errors.New("ghost: track has no timing data")
)

// Track is a fully reconstructed replay: ordered frames plus the metadata
// needed to present them. Frames are indexed in tick order and must not be
// mutated after construction; all query methods are read-only, so a Track
// may be shared freely between goroutines.
type Track struct {
	Name    string  `json:"name"`
	MapName string  `json:"mapName"`
	GameMod string  `json:"gameMod"`
	Frames  []Frame `json:"frames"`
}

// FrameAt returns a synthesized frame for playback time at (seconds).
//
// override, when non-nil, replaces every frame's stored duration, for
// tracks recorded at a known fixed tick rate. With no override the walk
// uses each frame's own FrameTime; ErrNoTimingData is returned when neither
// source of durations exists.
//
// Times at or before the first frame boundary return the first frame
// verbatim. Times at or past the last boundary return ErrEndOfStream.
// Anything in between is interpolated: origin and field-of-view linearly
// (FOV only when both bracketing frames carry one), view angles along the
// shortest angular path per axis. Animation state, input state, and extras
// are discrete and come verbatim from the earlier bracketing frame.
func (t *Track) FrameAt(at float64, override *float64) (Frame, error) {
	if len(t.Frames) == 0 {
		return Frame{}, ErrEndOfStream
	}
	if override == nil && !t.hasTiming() {
		return Frame{}, ErrNoTimingData
	}

	var fromTime, toTime float64
	toIndex := 0

	for index, frame := range t.Frames {
		addTime := frameDuration(frame, override)

		// Only exit when strictly greater: that makes the current toIndex
		// the "to" frame of the bracket.
		if toTime > at {
			break
		}

		fromTime = toTime
		toTime += addTime
		toIndex = index
	}

	// The queried time precedes the first boundary.
	if toIndex == 0 {
		return t.Frames[0], nil
	}

	// Ran past the final frame: playback is over.
	if toIndex == len(t.Frames)-1 && at >= toTime {
		return Frame{}, ErrEndOfStream
	}

	to := &t.Frames[toIndex]
	from := &t.Frames[toIndex-1]

	target := (at - fromTime) / (toTime - fromTime)
	// Clamp because lerp extrapolates outside [0, 1].
	target = math.Min(math.Max(target, 0), 1)
	ft := float32(target)

	out := Frame{
		Origin:    from.Origin.Lerp(to.Origin, ft),
		FrameTime: from.FrameTime,
		Buttons:   from.Buttons,
		Anim:      from.Anim,
		Extras:    from.Extras,
	}

	for i := 0; i < 3; i++ {
		diff := angleDiff(from.ViewAngles[i], to.ViewAngles[i])
		out.ViewAngles[i] = from.ViewAngles[i] + diff*ft
	}

	if from.FOV != nil && to.FOV != nil {
		fov := *from.FOV + (*to.FOV-*from.FOV)*ft
		out.FOV = &fov
	}

	return out, nil
}

// IndexAt returns the index of the frame whose accumulated boundary brackets
// time at from above, the same walk FrameAt performs without the synthesis.
// Times before the first boundary return 0; times past the end return the
// last index.
func (t *Track) IndexAt(at float64, override *float64) int {
	var toTime float64
	toIndex := 0

	for index, frame := range t.Frames {
		addTime := frameDuration(frame, override)

		if toTime > at {
			break
		}

		toTime += addTime
		toIndex = index
	}

	return toIndex
}

// Duration returns the track's total playback length in seconds. A non-nil
// override replaces every frame's stored duration; without one, frames that
// carry no duration contribute zero.
func (t *Track) Duration(override *float64) float64 {
	var total float64
	for _, frame := range t.Frames {
		total += frameDuration(frame, override)
	}
	return total
}

// HasSound reports whether any frame carries sound events.
func (t *Track) HasSound() bool {
	for _, frame := range t.Frames {
		if len(frame.Extras.Sounds) > 0 {
			return true
		}
	}
	return false
}

func (t *Track) hasTiming() bool {
	for _, frame := range t.Frames {
		if frame.FrameTime != nil {
			return true
		}
	}
	return false
}

func frameDuration(frame Frame, override *float64) float64 {
	if override != nil {
		return *override
	}
	if frame.FrameTime != nil {
		return *frame.FrameTime
	}
	return 0
}

// angleDiff returns the signed minimal delta in degrees from curr toward
// next, so that a 179° → -179° transition moves 2° the short way around
// instead of 358° the long way.
func angleDiff(curr, next float32) float32 {
	currRad := float64(curr) * math.Pi / 180
	nextRad := float64(next) * math.Pi / 180

	return float32(math.Asin(-math.Sin(currRad-nextRad)) * 180 / math.Pi)
}
