package v1

import (
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// TrackData contains all the data needed to build an export.
type TrackData struct {
	Track  *ghost.Track
	Report reconstruct.Report
	Source string
}

// Build creates an Export from the track data.
func Build(data *TrackData) Export {
	track := data.Track

	export := Export{
		FormatVersion: FormatVersion,
		TrackName:     track.Name,
		MapName:       track.MapName,
		GameMod:       track.GameMod,
		Source:        data.Source,
		Duration:      data.Report.Duration,
		FrameCount:    len(track.Frames),
		Frames:        make([][]any, 0, len(track.Frames)),
		Sounds:        make([][]any, 0, data.Report.Sounds),
		Texts:         make([][]any, 0, data.Report.Texts),
		Chat:          make([][]any, 0, data.Report.ChatSegments),
		Weapons:       make([][]any, 0, data.Report.WeaponChanges),
	}

	for i, frame := range track.Frames {
		export.Frames = append(export.Frames, frameRow(frame))

		for _, s := range frame.Extras.Sounds {
			export.Sounds = append(export.Sounds, soundRow(i, s))
		}
		for _, txt := range frame.Extras.Texts {
			export.Texts = append(export.Texts, textRow(i, txt))
		}
		for _, seg := range frame.Extras.Chat {
			export.Chat = append(export.Chat, []any{i, seg.Kind, seg.Text})
		}
		if frame.Extras.WeaponChange != nil {
			row := []any{i, *frame.Extras.WeaponChange, nil}
			if frame.Extras.WeaponAnim != nil {
				row[2] = *frame.Extras.WeaponAnim
			}
			export.Weapons = append(export.Weapons, row)
		}
	}

	return export
}

// frameRow flattens one frame into its positional row. Absent optional
// fields become nulls so the viewer can tell "not asserted" from zero.
func frameRow(f ghost.Frame) []any {
	row := []any{f.Origin, f.ViewAngles, nil, nil, nil, nil}
	if f.FrameTime != nil {
		row[2] = *f.FrameTime
	}
	if f.Buttons != nil {
		row[3] = *f.Buttons
	}
	if f.FOV != nil {
		row[4] = *f.FOV
	}
	if anim := animRow(f.Anim); anim != nil {
		row[5] = anim
	}
	return row
}

// animRow flattens the animation state, or nil when nothing was asserted.
func animRow(a ghost.AnimationState) []any {
	if a.Sequence == nil && a.Frame == nil && a.AnimTime == nil &&
		a.GaitSequence == nil && a.Blending[0] == nil && a.Blending[1] == nil {
		return nil
	}

	row := []any{nil, nil, nil, nil, nil}
	if a.Sequence != nil {
		row[0] = *a.Sequence
	}
	if a.Frame != nil {
		row[1] = *a.Frame
	}
	if a.AnimTime != nil {
		row[2] = *a.AnimTime
	}
	if a.GaitSequence != nil {
		row[3] = *a.GaitSequence
	}
	if a.Blending[0] != nil || a.Blending[1] != nil {
		blend := []any{nil, nil}
		if a.Blending[0] != nil {
			blend[0] = *a.Blending[0]
		}
		if a.Blending[1] != nil {
			blend[1] = *a.Blending[1]
		}
		row[4] = blend
	}
	return row
}

// soundRow flattens one sound event. The origin is null for sounds the
// engine played without a world position.
func soundRow(frame int, s ghost.SoundEvent) []any {
	row := []any{frame, s.Name, s.Channel, s.Volume, nil}
	if s.Origin != nil {
		row[4] = *s.Origin
	}
	return row
}

// textRow flattens one HUD text event.
func textRow(frame int, t ghost.TextEvent) []any {
	return []any{
		frame,
		t.Text,
		[]any{t.Position[0], t.Position[1]},
		[]any{t.Color[0], t.Color[1], t.Color[2], t.Color[3]},
		t.Life,
		t.Channel,
	}
}
