// Package demo holds the decoded per-tick record model that ghost
// reconstruction consumes. A Demo is the output of the demo-decoding
// collaborator, dumped as (optionally gzipped) JSON: this package only
// models and transports those records, it never touches the binary
// demo container itself.
package demo

// Kind discriminators used by the JSON envelope encoding.
const (
	KindClientData     = "client_data"
	KindWeaponAnim     = "weapon_anim"
	KindSound          = "sound"
	KindNetMessage     = "net_message"
	KindUserMessage    = "user_message"
	KindResourceList   = "resource_list"
	KindTextMessage    = "text_message"
	KindSoundMessage   = "sound_message"
	KindUserInfo       = "user_info"
	KindPacketEntities = "packet_entities"
)

// Demo is one fully decoded recording. Baseline carries the bootstrap-only
// ticks (lookup tables, no gameplay), Gameplay carries everything after, in
// recorded order. Tick times are cumulative seconds and monotonically
// non-decreasing within each stream.
type Demo struct {
	MapName  string `json:"mapName"`
	GameDir  string `json:"gameDir"`
	Baseline []Tick `json:"baseline"`
	Gameplay []Tick `json:"gameplay"`
}

// Tick is one recorded time step: a cumulative timestamp plus exactly one
// payload variant.
type Tick struct {
	Time    float64
	Payload Payload
}

// Payload is one decoded tick variant. The set is closed: exactly the four
// concrete payload types in this package implement it, and consumers
// exhaustively type-switch over them.
type Payload interface {
	payloadKind() string
}

// ClientData is a pose tick: the engine's authoritative camera update.
type ClientData struct {
	ViewAngles [3]float32 `json:"viewAngles"`
	FOV        float32    `json:"fov"`
}

// WeaponAnim is a one-shot viewmodel animation tick.
type WeaponAnim struct {
	Anim int32 `json:"anim"`
	Body int32 `json:"body"`
}

// Sound is a direct sound tick played outside any network bundle.
type Sound struct {
	Channel int32   `json:"channel"`
	Sample  string  `json:"sample"`
	Volume  float32 `json:"volume"`
}

// NetMessage is a network-message bundle tick: the player's simulated
// position plus zero or more decoded sub-messages.
type NetMessage struct {
	SimOrigin  [3]float32 `json:"simOrigin"`
	ViewHeight [3]float32 `json:"viewHeight"`
	Messages   []Message  `json:"messages"`
}

func (ClientData) payloadKind() string { return KindClientData }
func (WeaponAnim) payloadKind() string { return KindWeaponAnim }
func (Sound) payloadKind() string      { return KindSound }
func (NetMessage) payloadKind() string { return KindNetMessage }

// Message is one decoded sub-message inside a NetMessage bundle. Like
// Payload it is a closed set.
type Message interface {
	messageKind() string
}

// UserMessage is a game-defined message registered by name; the payload
// layout is the game's business and stays raw here.
type UserMessage struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Resource is one entry of a resource list: the engine's index for a file
// the server told the client to use. Names may keep a trailing NUL from the
// wire; consumers strip it when they resolve an index.
type Resource struct {
	Index int32  `json:"index"`
	Name  string `json:"name"`
}

// ResourceList announces server resources, usually sounds and models.
type ResourceList struct {
	Resources []Resource `json:"resources"`
}

// TextMessage is a temp-entity text display. Coordinates are the engine's
// raw signed screen values and times are milliseconds, both normalized
// downstream.
type TextMessage struct {
	Channel   int8     `json:"channel"`
	X         int16    `json:"x"`
	Y         int16    `json:"y"`
	TextColor [4]uint8 `json:"textColor"`
	FadeIn    uint16   `json:"fadeIn"`
	FadeOut   uint16   `json:"fadeOut"`
	Hold      uint16   `json:"hold"`
	Message   []byte   `json:"message"`
}

// SoundMessage is an engine sound referencing a resource index. Every field
// past Channel is optional on the wire.
type SoundMessage struct {
	Channel    int32    `json:"channel"`
	IndexShort *uint8   `json:"indexShort,omitempty"`
	IndexLong  *uint16  `json:"indexLong,omitempty"`
	Volume     *uint8   `json:"volume,omitempty"`
	OriginX    *float32 `json:"originX,omitempty"`
	OriginY    *float32 `json:"originY,omitempty"`
	OriginZ    *float32 `json:"originZ,omitempty"`
}

// UserInfo updates one connected player's info string, a backslash-delimited
// key/value blob ("\name\Bob\model\gign\...").
type UserInfo struct {
	Index uint8  `json:"index"`
	Info  []byte `json:"info"`
}

// EntityDelta is one entity's delta-compressed state: raw little-endian
// field bytes keyed by the engine's delta field name ("sequence", "frame",
// "animtime", "gaitsequence", "blending[0]", "blending[1]", ...).
type EntityDelta struct {
	Fields map[string][]byte `json:"fields"`
}

// PacketEntities carries the delta entity state for a bundle; the first
// entity is the recording player.
type PacketEntities struct {
	Entities []EntityDelta `json:"entities"`
}

func (UserMessage) messageKind() string    { return KindUserMessage }
func (ResourceList) messageKind() string   { return KindResourceList }
func (TextMessage) messageKind() string    { return KindTextMessage }
func (SoundMessage) messageKind() string   { return KindSoundMessage }
func (UserInfo) messageKind() string       { return KindUserInfo }
func (PacketEntities) messageKind() string { return KindPacketEntities }
