package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/demoghost/replay/internal/model"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// pointToOrigin rebuilds a frame origin from its planar point column and
// the separate elevation column.
func pointToOrigin(p geom.Point, elevation float32) ghost.Vec3 {
	coord, ok := p.Coordinates()
	if !ok {
		return ghost.Vec3{0, 0, elevation}
	}
	return ghost.Vec3{float32(coord.XY.X), float32(coord.XY.Y), elevation}
}

// FrameFromRecord converts one row back to its frame form. NULL columns map
// to absent optional fields.
func FrameFromRecord(rec model.FrameRecord) ghost.Frame {
	f := ghost.Frame{
		Origin:     pointToOrigin(rec.Position, rec.ElevationZ),
		ViewAngles: ghost.Vec3{rec.Pitch, rec.Yaw, rec.Roll},
	}

	if rec.FrameTime.Valid {
		v := rec.FrameTime.Float64
		f.FrameTime = &v
	}
	if rec.Buttons.Valid {
		v := uint32(rec.Buttons.Int64)
		f.Buttons = &v
	}
	if rec.FOV.Valid {
		v := float32(rec.FOV.Float64)
		f.FOV = &v
	}

	if rec.Sequence.Valid {
		v := rec.Sequence.Int32
		f.Anim.Sequence = &v
	}
	if rec.AnimFrame.Valid {
		v := float32(rec.AnimFrame.Float64)
		f.Anim.Frame = &v
	}
	if rec.AnimTime.Valid {
		v := float32(rec.AnimTime.Float64)
		f.Anim.AnimTime = &v
	}
	if rec.GaitSequence.Valid {
		v := rec.GaitSequence.Int32
		f.Anim.GaitSequence = &v
	}
	if rec.Blending0.Valid {
		v := uint8(rec.Blending0.Int16)
		f.Anim.Blending[0] = &v
	}
	if rec.Blending1.Valid {
		v := uint8(rec.Blending1.Int16)
		f.Anim.Blending[1] = &v
	}

	if len(rec.Extras) > 0 {
		_ = json.Unmarshal(rec.Extras, &f.Extras)
	}

	return f
}

// RecordToTrack rebuilds a track from its header row and frame rows. The
// frame rows must already be ordered by frame index; chat and sound rows are
// projections of the frame extras, so they are not needed to rebuild.
func RecordToTrack(rec model.TrackRecord, frames []model.FrameRecord) *ghost.Track {
	t := &ghost.Track{
		Name:    rec.Name,
		MapName: rec.MapName,
		GameMod: rec.GameMod,
		Frames:  make([]ghost.Frame, 0, len(frames)),
	}
	for _, fr := range frames {
		t.Frames = append(t.Frames, FrameFromRecord(fr))
	}
	return t
}

// ReportFromRecord rebuilds the reconstruction report stored with a track
// header. Elapsed is not persisted and stays zero.
func ReportFromRecord(rec model.TrackRecord) reconstruct.Report {
	return reconstruct.Report{
		Frames:         rec.FrameCount,
		Sounds:         rec.Counts.Sounds,
		Texts:          rec.Counts.Texts,
		ChatSegments:   rec.Counts.ChatSegments,
		WeaponChanges:  rec.Counts.WeaponChanges,
		SkippedSounds:  rec.Counts.SkippedSounds,
		SkippedWeapons: rec.Counts.SkippedWeapons,
		Resources:      rec.Counts.Resources,
		Weapons:        rec.Counts.Weapons,
		Players:        rec.Counts.Players,
		Duration:       rec.Duration,
	}
}
