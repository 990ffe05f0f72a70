package demo

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u8p(v uint8) *uint8 { return &v }

func sampleDemo() *Demo {
	return &Demo{
		MapName: "de_dust2",
		GameDir: "cstrike",
		Baseline: []Tick{
			{Time: 0, Payload: NetMessage{
				Messages: []Message{
					ResourceList{Resources: []Resource{
						{Index: 3, Name: "weapons/ak47-1.wav\x00"},
					}},
					UserMessage{Name: "WeaponList", Data: []byte("weapon_ak47\x0028")},
				},
			}},
		},
		Gameplay: []Tick{
			{Time: 0.1, Payload: ClientData{ViewAngles: [3]float32{0, 90, 0}, FOV: 90}},
			{Time: 0.1, Payload: WeaponAnim{Anim: 4, Body: 0}},
			{Time: 0.2, Payload: Sound{Channel: 2, Sample: "player/pl_step1.wav", Volume: 0.8}},
			{Time: 0.2, Payload: NetMessage{
				SimOrigin:  [3]float32{100, 200, 36},
				ViewHeight: [3]float32{0, 0, 17},
				Messages: []Message{
					UserMessage{Name: "SayText", Data: []byte{2, 1, 'h', 'i'}},
					TextMessage{
						Channel:   1,
						X:         -8192,
						Y:         4096,
						TextColor: [4]uint8{255, 128, 0, 255},
						FadeIn:    100,
						FadeOut:   200,
						Hold:      1500,
						Message:   []byte("Round draw"),
					},
					SoundMessage{Channel: 1, IndexShort: u8p(3), Volume: u8p(128)},
					UserInfo{Index: 1, Info: []byte(`\name\Bob\model\gign`)},
					PacketEntities{Entities: []EntityDelta{
						{Fields: map[string][]byte{
							"sequence": {4, 0, 0, 0},
							"frame":    {0, 0, 128, 63},
						}},
					}},
				},
			}},
		},
	}
}

func TestDemoRoundTrip(t *testing.T) {
	original := sampleDemo()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Demo
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, *original, decoded)
}

func TestTickEnvelopeKinds(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		kind    string
	}{
		{name: "client data", payload: ClientData{FOV: 90}, kind: KindClientData},
		{name: "weapon anim", payload: WeaponAnim{Anim: 3}, kind: KindWeaponAnim},
		{name: "sound", payload: Sound{Sample: "x.wav"}, kind: KindSound},
		{name: "bundle", payload: NetMessage{}, kind: KindNetMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Tick{Time: 1.5, Payload: tt.payload})
			require.NoError(t, err)

			var env tickEnvelope
			require.NoError(t, json.Unmarshal(data, &env))
			assert.Equal(t, tt.kind, env.Kind)
			assert.Equal(t, 1.5, env.Time)
		})
	}
}

func TestTickUnmarshalUnknownKind(t *testing.T) {
	var tick Tick
	err := json.Unmarshal([]byte(`{"time":1,"kind":"warp_drive","payload":{}}`), &tick)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp_drive")
}

func TestNetMessageUnmarshalUnknownMessageKind(t *testing.T) {
	var tick Tick
	raw := `{"time":1,"kind":"net_message","payload":{"simOrigin":[0,0,0],"viewHeight":[0,0,0],"messages":[{"kind":"bogus","payload":{}}]}}`

	err := json.Unmarshal([]byte(raw), &tick)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestTickMarshalNilPayload(t *testing.T) {
	_, err := json.Marshal(Tick{Time: 1})
	assert.Error(t, err)
}

func TestLoad_PlainJSON(t *testing.T) {
	data, err := json.Marshal(sampleDemo())
	require.NoError(t, err)

	d, err := Load(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, "de_dust2", d.MapName)
	assert.Equal(t, "cstrike", d.GameDir)
	assert.Len(t, d.Baseline, 1)
	assert.Len(t, d.Gameplay, 4)
}

func TestLoad_Gzip(t *testing.T) {
	data, err := json.Marshal(sampleDemo())
	require.NoError(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	d, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, *sampleDemo(), *d)
}

func TestLoad_Garbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not json at all")))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	data, err := json.Marshal(sampleDemo())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "de_dust2", d.MapName)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
