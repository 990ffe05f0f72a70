// pkg/ghost/summary.go
package ghost

import (
	"errors"
	"time"
)

// ErrTrackNotFound reports that a storage backend holds no track under the
// requested name.
var ErrTrackNotFound = errors.New("ghost: track not found")

// TrackSummary is the header of a stored track, as returned by storage
// listings. ID is the backend's row or entry identifier.
type TrackSummary struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	MapName    string    `json:"mapName"`
	GameMod    string    `json:"gameMod"`
	Duration   float64   `json:"duration"`
	FrameCount int       `json:"frameCount"`
	SavedAt    time.Time `json:"savedAt"`
}

// UploadMetadata describes an exported track file handed to the sharing
// server alongside the upload.
type UploadMetadata struct {
	TrackName  string  `json:"trackName"`
	MapName    string  `json:"mapName"`
	GameMod    string  `json:"gameMod"`
	Duration   float64 `json:"duration"`
	FrameCount int     `json:"frameCount"`
}
