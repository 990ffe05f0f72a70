// Package reconstruct builds playable ghost tracks out of decoded demo
// dumps. Reconstruction runs two single-threaded passes: a bootstrap pass
// over the baseline ticks that fills the resource and weapon lookup tables,
// then a main pass over the gameplay ticks that tracks camera pose, sticky
// animation state, and per-tick events, emitting one frame per network
// bundle. A post-pass converts the cumulative tick times into per-frame
// durations.
package reconstruct

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/demoghost/replay/internal/queue"
	"github.com/demoghost/replay/internal/util"
	"github.com/demoghost/replay/pkg/demo"
	"github.com/demoghost/replay/pkg/ghost"
)

// User message names the reconstructor recognizes.
const (
	weaponListMessage = "WeaponList"
	sayTextMessage    = "SayText"
	curWeaponMessage  = "CurWeapon"
)

const weaponPrefix = "weapon_"

// centeredSentinel is the engine's raw screen coordinate for "centered".
const centeredSentinel = -8192

// ResourceTable maps engine resource indices to the file names announced
// during the baseline stream. The first announcement for an index wins.
type ResourceTable map[int32]string

// WeaponTable maps weapon ids to display names with the "weapon_" prefix
// stripped.
type WeaponTable map[uint8]string

// Report summarizes one reconstruction run for logs and metrics.
type Report struct {
	Frames         int           `json:"frames"`
	Sounds         int           `json:"sounds"`
	Texts          int           `json:"texts"`
	ChatSegments   int           `json:"chatSegments"`
	WeaponChanges  int           `json:"weaponChanges"`
	SkippedSounds  int           `json:"skippedSounds"`
	SkippedWeapons int           `json:"skippedWeapons"`
	Resources      int           `json:"resources"`
	Weapons        int           `json:"weapons"`
	Players        int           `json:"players"`
	Duration       float64       `json:"duration"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Reconstructor builds ghost tracks from decoded demos. It carries no
// per-run state, so one Reconstructor may serve concurrent callers; every
// call owns its own pass.
type Reconstructor struct {
	logger *slog.Logger
}

// New creates a Reconstructor logging through logger (slog.Default when nil).
func New(logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{logger: logger}
}

// Reconstruct builds the track named name from d. Fatal parse errors abort
// the whole run with no partial track; recoverable per-event problems are
// logged, counted in the Report, and skipped.
func (r *Reconstructor) Reconstruct(name string, d *demo.Demo) (*ghost.Track, *Report, error) {
	started := time.Now()

	p := &pass{
		logger:        r.logger.With("track", name),
		resources:     make(ResourceTable),
		weapons:       make(WeaponTable),
		names:         make(map[uint8]string),
		pendingSounds: queue.New[ghost.SoundEvent](),
	}

	if err := p.bootstrap(d.Baseline); err != nil {
		return nil, nil, fmt.Errorf("error bootstrapping lookup tables: %w", err)
	}

	if err := p.run(d.Gameplay); err != nil {
		return nil, nil, fmt.Errorf("error reconstructing frames: %w", err)
	}

	p.finalize()

	gameMod := d.GameDir
	if gameMod == "" {
		gameMod = ghost.UnknownGameMod
	}

	track := &ghost.Track{
		Name:    name,
		MapName: d.MapName,
		GameMod: gameMod,
		Frames:  p.frames,
	}

	p.report.Frames = len(p.frames)
	p.report.Resources = len(p.resources)
	p.report.Weapons = len(p.weapons)
	p.report.Players = len(p.names)
	p.report.Duration = track.Duration(nil)
	p.report.Elapsed = time.Since(started)

	p.logger.Info("track reconstructed",
		"frames", p.report.Frames,
		"sounds", p.report.Sounds,
		"chatSegments", p.report.ChatSegments,
		"duration", p.report.Duration,
		"elapsed", p.report.Elapsed,
	)

	return track, &p.report, nil
}

// pass owns every piece of mutable state for one reconstruction run. A run
// is single-threaded; nothing here is shared.
type pass struct {
	logger    *slog.Logger
	resources ResourceTable
	weapons   WeaponTable
	names     map[uint8]string

	// sticky across ticks until overwritten or reset
	origin     ghost.Vec3
	viewAngles ghost.Vec3
	fov        *float32
	anim       ghost.AnimationState

	// pending until consumed by the next emitted frame
	pendingSounds *queue.Queue[ghost.SoundEvent]
	pendingAnim   *int32

	// scoped to the bundle currently being processed
	texts        []ghost.TextEvent
	chat         []ghost.ChatSegment
	weaponChange *string

	frames []ghost.Frame
	report Report
}

// bootstrap fills the resource and weapon tables from the baseline ticks.
func (p *pass) bootstrap(ticks []demo.Tick) error {
	for _, tick := range ticks {
		bundle, ok := tick.Payload.(demo.NetMessage)
		if !ok {
			continue
		}

		for _, msg := range bundle.Messages {
			switch m := msg.(type) {
			case demo.ResourceList:
				for _, res := range m.Resources {
					// First announcement wins; re-announcements of an
					// index during the baseline are stale.
					if _, exists := p.resources[res.Index]; !exists {
						p.resources[res.Index] = res.Name
					}
				}
			case demo.UserMessage:
				if m.Name != weaponListMessage {
					continue
				}
				if err := p.registerWeapon(m.Data); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// registerWeapon parses one WeaponList payload: a NUL-terminated weapon
// name followed by the weapon id as the trailing byte.
func (p *pass) registerWeapon(data []byte) error {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return fmt.Errorf("weapon list entry has no name terminator")
	}

	name := string(data[:nul])
	if !strings.HasPrefix(name, weaponPrefix) {
		return fmt.Errorf("weapon list entry %q lacks the %q prefix", name, weaponPrefix)
	}

	id := data[len(data)-1]
	p.weapons[id] = strings.TrimPrefix(name, weaponPrefix)
	return nil
}

// run is the main pass: one iteration per gameplay tick, one emitted frame
// per network bundle.
func (p *pass) run(ticks []demo.Tick) error {
	for _, tick := range ticks {
		switch payload := tick.Payload.(type) {
		case demo.WeaponAnim:
			anim := payload.Anim
			p.pendingAnim = &anim

		case demo.ClientData:
			p.viewAngles = ghost.Vec3(payload.ViewAngles)
			fov := payload.FOV
			p.fov = &fov
			// Pose ticks are the animation sync boundary: every skeletal
			// field is stale until a delta re-asserts it.
			p.anim = ghost.AnimationState{}

		case demo.Sound:
			p.pendingSounds.Push(ghost.SoundEvent{
				Name:    payload.Sample,
				Channel: payload.Channel,
				Volume:  payload.Volume,
			})

		case demo.NetMessage:
			if err := p.bundle(tick.Time, payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// bundle processes one network-message bundle and emits its frame.
func (p *pass) bundle(cumulative float64, bundle demo.NetMessage) error {
	p.origin = ghost.Vec3(bundle.SimOrigin).Add(ghost.Vec3(bundle.ViewHeight))

	for _, msg := range bundle.Messages {
		switch m := msg.(type) {
		case demo.UserMessage:
			if err := p.userMessage(m); err != nil {
				return err
			}
		case demo.TextMessage:
			p.texts = append(p.texts, textEvent(m))
			p.report.Texts++
		case demo.SoundMessage:
			if err := p.soundMessage(m); err != nil {
				return err
			}
		case demo.UserInfo:
			p.userInfo(m)
		case demo.PacketEntities:
			p.applyDelta(m)
		}
	}

	p.emit(cumulative)
	return nil
}

func (p *pass) userMessage(m demo.UserMessage) error {
	switch m.Name {
	case sayTextMessage:
		return p.sayText(m.Data)
	case curWeaponMessage:
		p.curWeapon(m.Data)
	}
	return nil
}

// sayText decodes one chat line. The payload leads with the sender's index
// in the player name table; an index never announced by a user-info update
// means the table is out of sync and the whole track would be wrong.
func (p *pass) sayText(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	sender := data[0]
	name, ok := p.names[sender]
	if !ok {
		return fmt.Errorf("chat line references unknown player index %d", sender)
	}

	segments := decodeChatChunks(data[1:], name)
	p.chat = append(p.chat, segments...)
	p.report.ChatSegments += len(segments)
	return nil
}

// curWeapon reads a CurWeapon payload: state byte, weapon id, ammo. A zero
// state is a holster update, not a switch.
func (p *pass) curWeapon(data []byte) {
	if len(data) < 2 || data[0] == 0 {
		return
	}

	id := data[1]
	name, ok := p.weapons[id]
	if !ok {
		p.report.SkippedWeapons++
		p.logger.Warn("current weapon references unknown weapon id", "id", id)
		return
	}

	p.weaponChange = &name
	p.report.WeaponChanges++
}

// soundMessage resolves an engine sound through the resource table and
// stages it on the pending queue.
func (p *pass) soundMessage(m demo.SoundMessage) error {
	var index int32
	switch {
	case m.IndexShort != nil:
		index = int32(*m.IndexShort)
	case m.IndexLong != nil:
		index = int32(*m.IndexLong)
	default:
		return fmt.Errorf("sound message on channel %d carries no resource index", m.Channel)
	}

	name, ok := p.resources[index]
	if !ok {
		p.report.SkippedSounds++
		p.logger.Warn("sound references unannounced resource", "index", index)
		return nil
	}

	volume := float32(1)
	if m.Volume != nil {
		volume = float32(*m.Volume) / 255
	}

	var origin *ghost.Vec3
	if m.OriginX != nil && m.OriginY != nil && m.OriginZ != nil {
		origin = &ghost.Vec3{*m.OriginX, *m.OriginY, *m.OriginZ}
	}

	p.pendingSounds.Push(ghost.SoundEvent{
		Name:    util.TrimTrailingNul(name),
		Channel: m.Channel,
		Volume:  volume,
		Origin:  origin,
	})
	return nil
}

// userInfo upserts the player name table. An info blob without a "name" key
// leaves the existing entry untouched.
func (p *pass) userInfo(m demo.UserInfo) {
	info := util.ParseInfoString(util.LossyString(m.Info))
	name, ok := info["name"]
	if !ok {
		return
	}
	p.names[m.Index] = name
}

// applyDelta folds the first entity's delta fields into the sticky
// animation state. Fields absent from the delta keep their current value.
func (p *pass) applyDelta(m demo.PacketEntities) {
	if len(m.Entities) == 0 {
		return
	}

	// The first tracked entity is the recording player.
	fields := m.Entities[0].Fields

	if v, ok := deltaI32(fields, "sequence"); ok {
		p.anim.Sequence = &v
	}
	if v, ok := deltaF32(fields, "frame"); ok {
		p.anim.Frame = &v
	}
	if v, ok := deltaF32(fields, "animtime"); ok {
		p.anim.AnimTime = &v
	}
	if v, ok := deltaI32(fields, "gaitsequence"); ok {
		p.anim.GaitSequence = &v
	}
	if v, ok := deltaU8(fields, "blending[0]"); ok {
		p.anim.Blending[0] = &v
	}
	if v, ok := deltaU8(fields, "blending[1]"); ok {
		p.anim.Blending[1] = &v
	}
}

// emit appends the frame for the bundle at the given cumulative time, then
// clears the one-shot and bundle-scoped state. Pose and animation state
// stay sticky.
func (p *pass) emit(cumulative float64) {
	frameTime := cumulative

	extras := ghost.FrameExtras{
		Sounds:       p.pendingSounds.Drain(),
		Texts:        p.texts,
		Chat:         p.chat,
		WeaponChange: p.weaponChange,
		WeaponAnim:   p.pendingAnim,
	}
	p.report.Sounds += len(extras.Sounds)

	p.frames = append(p.frames, ghost.Frame{
		Origin:     p.origin,
		ViewAngles: p.viewAngles,
		FrameTime:  &frameTime,
		FOV:        clone(p.fov),
		Anim:       snapshotAnim(p.anim),
		Extras:     extras,
	})

	p.pendingAnim = nil
	p.texts = nil
	p.chat = nil
	p.weaponChange = nil
}

// finalize rewrites each frame's stored cumulative time as the duration
// since the previous frame. The accumulator starts at zero, so the first
// frame keeps its cumulative value as its duration.
func (p *pass) finalize() {
	acc := 0.0
	for i := range p.frames {
		cumulative := *p.frames[i].FrameTime
		delta := cumulative - acc
		p.frames[i].FrameTime = &delta
		acc = cumulative
	}
}

// textEvent normalizes a temp-entity text message: colors to [0, 1], raw
// screen coordinates to [0, 1], lifetime from milliseconds to seconds.
func textEvent(m demo.TextMessage) ghost.TextEvent {
	var color [4]float32
	for i, c := range m.TextColor {
		color[i] = float32(c) / 255
	}

	life := float32(uint32(m.Hold)+uint32(m.FadeIn)+uint32(m.FadeOut)) / 1000

	return ghost.TextEvent{
		Text:     util.TrimTrailingNul(util.LossyString(m.Message)),
		Position: [2]float32{normalizeScreen(m.X), normalizeScreen(m.Y)},
		Color:    color,
		Life:     life,
		Channel:  int32(m.Channel),
	}
}

// normalizeScreen maps a raw signed screen coordinate to [0, 1].
func normalizeScreen(x int16) float32 {
	if x == centeredSentinel {
		return 0.5
	}
	return float32(x) / 8192
}

func snapshotAnim(a ghost.AnimationState) ghost.AnimationState {
	return ghost.AnimationState{
		Sequence:     clone(a.Sequence),
		Frame:        clone(a.Frame),
		AnimTime:     clone(a.AnimTime),
		GaitSequence: clone(a.GaitSequence),
		Blending:     [2]*uint8{clone(a.Blending[0]), clone(a.Blending[1])},
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func deltaI32(fields map[string][]byte, key string) (int32, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) < 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(raw)), true
}

func deltaF32(fields map[string][]byte, key string) (float32, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) < 4 {
		return 0, false
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(raw)), true
}

func deltaU8(fields map[string][]byte, key string) (uint8, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) < 1 {
		return 0, false
	}
	return raw[0], true
}
