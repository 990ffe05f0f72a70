// pkg/streaming/messages.go
package streaming

import (
	"encoding/json"

	"github.com/demoghost/replay/pkg/ghost"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartTrack = "start_track"
	TypeFrameBatch = "frame_batch"
	TypeEndTrack   = "end_track"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartTrackPayload announces the track about to be streamed.
type StartTrackPayload struct {
	Name       string  `json:"name"`
	MapName    string  `json:"mapName"`
	GameMod    string  `json:"gameMod"`
	FrameCount int     `json:"frameCount"`
	Duration   float64 `json:"duration"`
}

// FrameBatchPayload carries a contiguous run of frames. Start is the index
// of the first frame so the server can detect gaps after a reconnect.
type FrameBatchPayload struct {
	Start  int           `json:"start"`
	Frames []ghost.Frame `json:"frames"`
}
