// Package stream replays finished tracks to a replay server over WebSocket.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/demoghost/replay/pkg/ghost"
	"github.com/demoghost/replay/pkg/streaming"
)

const defaultBatchSize = 256

// Config holds streamer configuration.
type Config struct {
	URL        string
	APIKey     string
	BatchSize  int
	Reconnects int
	Backoff    time.Duration
}

// Streamer sends reconstructed tracks as envelope messages. Frame batches
// are fire-and-forget; start_track and end_track wait for server acks so
// the caller knows the run was seen end to end.
type Streamer struct {
	conn *connection
	cfg  Config
}

// New creates a streamer. The API key is sent as a header on the dial
// request.
func New(cfg Config, log *slog.Logger) *Streamer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Streamer{
		conn: newConnection(log, cfg.Reconnects, cfg.Backoff),
		cfg:  cfg,
	}
}

// Connect dials the replay server.
func (s *Streamer) Connect() error {
	return s.conn.dial(s.cfg.URL, s.cfg.APIKey)
}

// Close disconnects from the replay server.
func (s *Streamer) Close() error {
	return s.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (s *Streamer) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	s.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (s *Streamer) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return s.conn.sendAndWait(data, msgType, ackTimeout)
}

// SendTrack streams one finished track.
func (s *Streamer) SendTrack(track *ghost.Track) error {
	start := streaming.StartTrackPayload{
		Name:       track.Name,
		MapName:    track.MapName,
		GameMod:    track.GameMod,
		FrameCount: len(track.Frames),
		Duration:   track.Duration(nil),
	}
	data, err := marshalEnvelope(streaming.TypeStartTrack, start)
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	s.conn.mu.Lock()
	s.conn.cachedStartMsg = data
	s.conn.mu.Unlock()

	if err := s.conn.sendAndWait(data, streaming.TypeStartTrack, ackTimeout); err != nil {
		return err
	}

	for i := 0; i < len(track.Frames); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(track.Frames) {
			end = len(track.Frames)
		}
		batch := streaming.FrameBatchPayload{Start: i, Frames: track.Frames[i:end]}
		if err := s.sendEnvelope(streaming.TypeFrameBatch, batch); err != nil {
			return err
		}
	}

	err = s.sendEnvelopeAndWait(streaming.TypeEndTrack, nil)

	// Clear cached state regardless of error.
	s.conn.mu.Lock()
	s.conn.cachedStartMsg = nil
	s.conn.mu.Unlock()

	return err
}
