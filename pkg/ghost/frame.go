// Package ghost holds the reconstructed replay track model: one Frame per
// recorded tick plus the point-in-time query operations consumers use to
// play a track back. Tracks are immutable once built and safe for
// concurrent readers.
package ghost

// Vec3 is a position or euler-angle triple in map units / degrees.
type Vec3 [3]float32

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Lerp linearly interpolates each component from v toward o by t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{
		v[0] + (o[0]-v[0])*t,
		v[1] + (o[1]-v[1])*t,
		v[2] + (o[2]-v[2])*t,
	}
}

// AnimationState carries the player model's skeletal parameters. Every field
// is individually optional: nil means "not asserted since the last pose
// reset". Fields persist across frames until a pose tick resets the whole
// struct or a delta update overwrites them one by one.
type AnimationState struct {
	Sequence     *int32    `json:"sequence,omitempty"`
	Frame        *float32  `json:"frame,omitempty"`
	AnimTime     *float32  `json:"animTime,omitempty"`
	GaitSequence *int32    `json:"gaitSequence,omitempty"`
	Blending     [2]*uint8 `json:"blending"`
}

// SoundEvent is a sound that started on this frame.
type SoundEvent struct {
	// Name is the sample path relative to the game's sound directory,
	// e.g. "weapons/ak47-1.wav".
	Name    string  `json:"name"`
	Channel int32   `json:"channel"`
	Volume  float32 `json:"volume"`
	// Origin is nil for sounds the engine played without a world position.
	Origin *Vec3 `json:"origin,omitempty"`
}

// TextEvent is an on-screen text message (HUD timers, server notices).
type TextEvent struct {
	Text string `json:"text"`
	// Position is the screen anchor normalized to [0, 1]; 0.5 means the
	// engine's "centered" sentinel.
	Position [2]float32 `json:"position"`
	// Color is RGBA normalized to [0, 1].
	Color [4]float32 `json:"color"`
	// Life is how long the text stays up, in seconds.
	Life float32 `json:"life"`
	// Channel is the HUD slot; a new text replaces the previous occupant
	// of the same channel.
	Channel int32 `json:"channel"`
}

// ChatSegment is one visually distinct piece of a chat line. Kind is the
// engine print code (0-4) that selects how the segment is colored.
type ChatSegment struct {
	Kind uint8  `json:"kind"`
	Text string `json:"text"`
}

// FrameExtras bundles the discrete events attached to a single frame. The
// zero value means the frame carries no extras. Sounds and WeaponAnim are
// one-shot: they appear on exactly one frame and never repeat.
type FrameExtras struct {
	Sounds       []SoundEvent  `json:"sounds,omitempty"`
	Texts        []TextEvent   `json:"texts,omitempty"`
	Chat         []ChatSegment `json:"chat,omitempty"`
	WeaponChange *string       `json:"weaponChange,omitempty"`
	WeaponAnim   *int32        `json:"weaponAnim,omitempty"`
}

// Empty reports whether the frame carries no discrete events.
func (e FrameExtras) Empty() bool {
	return len(e.Sounds) == 0 && len(e.Texts) == 0 && len(e.Chat) == 0 &&
		e.WeaponChange == nil && e.WeaponAnim == nil
}

// Frame is one normalized tick of a replay track.
type Frame struct {
	Origin     Vec3 `json:"origin"`
	ViewAngles Vec3 `json:"viewAngles"`
	// FrameTime is the duration since the previous frame in seconds. It is
	// derived from cumulative tick time during reconstruction; nil means
	// the producer recorded no timing.
	FrameTime *float64 `json:"frameTime,omitempty"`
	// Buttons is the raw input bitfield. Demo reconstruction never sets it;
	// track formats that record input do.
	Buttons *uint32  `json:"buttons,omitempty"`
	FOV     *float32 `json:"fov,omitempty"`
	// Anim is a snapshot of the sticky animation state as of this frame.
	Anim   AnimationState `json:"anim"`
	Extras FrameExtras    `json:"extras"`
}
