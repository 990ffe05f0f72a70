package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoghost/replay/pkg/ghost"
	"github.com/demoghost/replay/pkg/streaming"
)

// testServer upgrades to WebSocket, records received envelopes, and acks
// start_track/end_track the way the replay server does.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setKey(r.Header.Get("X-API-Key"))

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartTrack || env.Type == streaming.TypeEndTrack {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	apiKey   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) setKey(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = k
}

func (m *messageLog) key() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiKey
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testTrack(frames int) *ghost.Track {
	ft := 0.1
	t := &ghost.Track{Name: "run.dem", MapName: "de_dust2", GameMod: "cstrike"}
	for i := 0; i < frames; i++ {
		t.Frames = append(t.Frames, ghost.Frame{
			Origin:    ghost.Vec3{float32(i), 0, 64},
			FrameTime: &ft,
		})
	}
	return t
}

func TestSendTrack(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	s := New(Config{URL: wsURL(srv), APIKey: "test-key", BatchSize: 256}, nil)
	require.NoError(t, s.Connect())
	defer s.Close()

	require.NoError(t, s.SendTrack(testTrack(600)))

	// The end_track ack arrives after every batch was read, so the log is
	// complete here.
	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartTrack, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndTrack, msgs[len(msgs)-1].Type)
	assert.Equal(t, "test-key", ml.key())

	var batches []streaming.FrameBatchPayload
	for _, m := range msgs {
		if m.Type != streaming.TypeFrameBatch {
			continue
		}
		var b streaming.FrameBatchPayload
		require.NoError(t, json.Unmarshal(m.Payload, &b))
		batches = append(batches, b)
	}
	require.Len(t, batches, 3)
	assert.Equal(t, 0, batches[0].Start)
	assert.Len(t, batches[0].Frames, 256)
	assert.Equal(t, 256, batches[1].Start)
	assert.Equal(t, 512, batches[2].Start)
	assert.Len(t, batches[2].Frames, 88)

	var start streaming.StartTrackPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "run.dem", start.Name)
	assert.Equal(t, "de_dust2", start.MapName)
	assert.Equal(t, 600, start.FrameCount)
	assert.InDelta(t, 60.0, start.Duration, 0.01)
}

func TestSendTrack_Empty(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	s := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, s.Connect())
	defer s.Close()

	require.NoError(t, s.SendTrack(&ghost.Track{Name: "empty.dem"}))

	msgs := ml.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, streaming.TypeStartTrack, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndTrack, msgs[1].Type)
}

func TestConnect_BadURL(t *testing.T) {
	s := New(Config{URL: "ws://127.0.0.1:1"}, nil)
	require.Error(t, s.Connect())
}

func TestNew_DefaultBatchSize(t *testing.T) {
	s := New(Config{URL: "ws://example"}, nil)
	assert.Equal(t, defaultBatchSize, s.cfg.BatchSize)
}

func TestEnvelopeSerialization(t *testing.T) {
	payload := streaming.StartTrackPayload{Name: "run.dem", MapName: "de_dust2", FrameCount: 42}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	env := streaming.Envelope{Type: streaming.TypeStartTrack, Payload: raw}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeStartTrack, decoded.Type)

	var sp streaming.StartTrackPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &sp))
	assert.Equal(t, "run.dem", sp.Name)
	assert.Equal(t, 42, sp.FrameCount)
}
