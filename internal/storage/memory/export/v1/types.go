// Package v1 contains the v1 export format for reconstructed tracks.
// The replay viewer loads these files directly.
package v1

// Export is the root JSON structure for v1 format.
// Frames are positional: frames[i] describes frame i. Event rows reference
// frames by index.
type Export struct {
	FormatVersion int     `json:"formatVersion"`
	TrackName     string  `json:"trackName"`
	MapName       string  `json:"mapName"`
	GameMod       string  `json:"gameMod"`
	Source        string  `json:"source"`
	Duration      float64 `json:"duration"`
	FrameCount    int     `json:"frameCount"`

	// Frame rows: [[x,y,z], [pitch,yaw,roll], frameTime, buttons, fov, anim]
	// where anim is [sequence, frame, animTime, gait, [b0,b1]] or null.
	Frames [][]any `json:"frames"`

	// Event rows, each leading with the frame index that emitted it:
	//   sounds:  [frame, name, channel, volume, [x,y,z]|null]
	//   texts:   [frame, text, [x,y], [r,g,b,a], life, channel]
	//   chat:    [frame, kind, text]
	//   weapons: [frame, weapon, anim|null]
	Sounds  [][]any `json:"sounds"`
	Texts   [][]any `json:"texts"`
	Chat    [][]any `json:"chat"`
	Weapons [][]any `json:"weapons"`
}

// FormatVersion is the version stamped into exports written by this build.
const FormatVersion = 1
