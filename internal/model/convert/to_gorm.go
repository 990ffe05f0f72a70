// Package convert provides functions to convert between GORM rows and the
// replay track model
package convert

import (
	"database/sql"
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/demoghost/replay/internal/model"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/internal/trajectory"
	"github.com/demoghost/replay/pkg/ghost"
)

// originToPoint converts a frame origin to an XY point column. The Z
// component is stored separately because point columns are planar.
func originToPoint(v ghost.Vec3) geom.Point {
	coords := geom.Coordinates{XY: geom.XY{X: float64(v[0]), Y: float64(v[1])}}
	return geom.NewPoint(coords)
}

// extrasToJSON converts frame extras to datatypes.JSON for DB storage.
func extrasToJSON(e ghost.FrameExtras) datatypes.JSON {
	if e.Empty() {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(e)
	return datatypes.JSON(data)
}

// TrackToRecord builds the header row for a track: metadata, report
// counters, and the encoded polyline of the XY path. Tracks too short to
// form a path store an empty polyline.
func TrackToRecord(t *ghost.Track, source string, report reconstruct.Report) model.TrackRecord {
	rec := model.TrackRecord{
		Name:       t.Name,
		MapName:    t.MapName,
		GameMod:    t.GameMod,
		Source:     source,
		Duration:   report.Duration,
		FrameCount: len(t.Frames),
		Counts:     CountsFromReport(report),
	}

	if path, err := trajectory.FromTrack(t); err == nil {
		rec.Polyline = path.EncodePolyline()
	}

	return rec
}

// TrackToPath builds the PostGIS path row for a stored track. The error
// wraps trajectory.ErrTooFewPoints when the track cannot form a line.
func TrackToPath(trackID uint, t *ghost.Track) (model.TrackPath, error) {
	path, err := trajectory.FromTrack(t)
	if err != nil {
		return model.TrackPath{}, err
	}
	return model.TrackPath{
		TrackID: trackID,
		Path:    path.Geometry(),
	}, nil
}

// CountsFromReport copies the reconstruction counters into their embedded
// column form.
func CountsFromReport(r reconstruct.Report) model.ReportCounts {
	return model.ReportCounts{
		Sounds:         r.Sounds,
		Texts:          r.Texts,
		ChatSegments:   r.ChatSegments,
		WeaponChanges:  r.WeaponChanges,
		SkippedSounds:  r.SkippedSounds,
		SkippedWeapons: r.SkippedWeapons,
		Resources:      r.Resources,
		Weapons:        r.Weapons,
		Players:        r.Players,
	}
}

// FrameToRecord converts one frame to its row form. Optional frame fields
// map to NULL columns when absent.
func FrameToRecord(index int, f ghost.Frame) model.FrameRecord {
	rec := model.FrameRecord{
		FrameIndex: uint(index),
		Position:   originToPoint(f.Origin),
		ElevationZ: f.Origin[2],
		Pitch:      f.ViewAngles[0],
		Yaw:        f.ViewAngles[1],
		Roll:       f.ViewAngles[2],
		Extras:     extrasToJSON(f.Extras),
	}

	if f.FrameTime != nil {
		rec.FrameTime = sql.NullFloat64{Float64: *f.FrameTime, Valid: true}
	}
	if f.Buttons != nil {
		rec.Buttons = sql.NullInt64{Int64: int64(*f.Buttons), Valid: true}
	}
	if f.FOV != nil {
		rec.FOV = sql.NullFloat64{Float64: float64(*f.FOV), Valid: true}
	}

	if f.Anim.Sequence != nil {
		rec.Sequence = sql.NullInt32{Int32: *f.Anim.Sequence, Valid: true}
	}
	if f.Anim.Frame != nil {
		rec.AnimFrame = sql.NullFloat64{Float64: float64(*f.Anim.Frame), Valid: true}
	}
	if f.Anim.AnimTime != nil {
		rec.AnimTime = sql.NullFloat64{Float64: float64(*f.Anim.AnimTime), Valid: true}
	}
	if f.Anim.GaitSequence != nil {
		rec.GaitSequence = sql.NullInt32{Int32: *f.Anim.GaitSequence, Valid: true}
	}
	if f.Anim.Blending[0] != nil {
		rec.Blending0 = sql.NullInt16{Int16: int16(*f.Anim.Blending[0]), Valid: true}
	}
	if f.Anim.Blending[1] != nil {
		rec.Blending1 = sql.NullInt16{Int16: int16(*f.Anim.Blending[1]), Valid: true}
	}

	return rec
}

// TrackToFrameRecords converts every frame of a track to row form, in tick
// order.
func TrackToFrameRecords(t *ghost.Track) []model.FrameRecord {
	records := make([]model.FrameRecord, 0, len(t.Frames))
	for i, f := range t.Frames {
		records = append(records, FrameToRecord(i, f))
	}
	return records
}

// TrackToChatRecords flattens every chat segment in the track into rows.
func TrackToChatRecords(t *ghost.Track) []model.ChatRecord {
	var records []model.ChatRecord
	for i, f := range t.Frames {
		for _, seg := range f.Extras.Chat {
			records = append(records, model.ChatRecord{
				FrameIndex: uint(i),
				Kind:       seg.Kind,
				Text:       seg.Text,
			})
		}
	}
	return records
}

// TrackToSoundRecords flattens every sound event in the track into rows.
func TrackToSoundRecords(t *ghost.Track) []model.SoundRecord {
	var records []model.SoundRecord
	for i, f := range t.Frames {
		for _, s := range f.Extras.Sounds {
			rec := model.SoundRecord{
				FrameIndex: uint(i),
				Name:       s.Name,
				Channel:    s.Channel,
				Volume:     s.Volume,
			}
			if s.Origin != nil {
				rec.Position = originToPoint(*s.Origin)
				rec.ElevationZ = (*s.Origin)[2]
				rec.Positional = true
			}
			records = append(records, rec)
		}
	}
	return records
}
