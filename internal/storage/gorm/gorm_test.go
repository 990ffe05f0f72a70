package gormstorage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoghost/replay/internal/database"
	"github.com/demoghost/replay/internal/model"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// newTestBackend creates a Backend over a throwaway SQLite file so every
// test gets an isolated schema.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db})
	require.NoError(t, b.Init())
	return b
}

func f64p(v float64) *float64 { return &v }
func f32p(v float32) *float32 { return &v }
func i32p(v int32) *int32     { return &v }
func u32p(v uint32) *uint32   { return &v }
func strp(v string) *string   { return &v }

func testTrack(name string) *ghost.Track {
	soundOrigin := ghost.Vec3{128, -64, 32}
	return &ghost.Track{
		Name:    name,
		MapName: "de_inferno",
		GameMod: "cstrike",
		Frames: []ghost.Frame{
			{
				Origin:     ghost.Vec3{0, 0, 64},
				ViewAngles: ghost.Vec3{0, 90, 0},
				FrameTime:  f64p(0.5),
				Buttons:    u32p(0x401),
				FOV:        f32p(90),
			},
			{
				Origin:     ghost.Vec3{10, 0, 64},
				ViewAngles: ghost.Vec3{0, 91, 0},
				FrameTime:  f64p(0.5),
				Extras: ghost.FrameExtras{
					Sounds: []ghost.SoundEvent{
						{Name: "weapons/ak47-1.wav", Channel: 1, Volume: 1.0, Origin: &soundOrigin},
					},
					Chat: []ghost.ChatSegment{{Kind: 3, Text: "glhf"}},
				},
			},
			{
				Origin:     ghost.Vec3{10, 10, 64},
				ViewAngles: ghost.Vec3{0, 92, 0},
				FrameTime:  f64p(0.5),
				Anim: ghost.AnimationState{
					Sequence: i32p(12),
				},
				Extras: ghost.FrameExtras{
					WeaponChange: strp("weapon_awp"),
					WeaponAnim:   i32p(3),
					Chat:         []ghost.ChatSegment{{Kind: 3, Text: "nice run"}},
				},
			},
		},
	}
}

func testReport() reconstruct.Report {
	return reconstruct.Report{
		Frames:       3,
		Sounds:       1,
		ChatSegments: 2,
		Duration:     1.5,
		Players:      1,
	}
}

func TestNew(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	require.NotNil(t, b.deps.Log, "a default logger is installed")
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	require.Error(t, b.Init())
}

func TestInit_MigratesPortableSchema(t *testing.T) {
	b := newTestBackend(t)

	migrator := b.DB().Migrator()
	for _, table := range []string{"tracks", "frames", "chat_lines", "sound_events"} {
		assert.True(t, migrator.HasTable(table), "missing table %s", table)
	}

	// The geometry path table needs PostGIS and is skipped on SQLite.
	assert.False(t, migrator.HasTable("track_paths"))
}

func TestSaveTrack_BeforeInit(t *testing.T) {
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db})
	_, err = b.SaveTrack(testTrack("run.dem"), "", testReport())
	require.Error(t, err)
}

func TestSaveTrack_InsertsRows(t *testing.T) {
	b := newTestBackend(t)

	id, err := b.SaveTrack(testTrack("run.dem"), "/demos/run.json", testReport())
	require.NoError(t, err)
	require.NotZero(t, id)

	db := b.DB()
	var frames, chat, sounds int64
	db.Model(&model.FrameRecord{}).Where("track_id = ?", id).Count(&frames)
	db.Model(&model.ChatRecord{}).Where("track_id = ?", id).Count(&chat)
	db.Model(&model.SoundRecord{}).Where("track_id = ?", id).Count(&sounds)

	assert.Equal(t, int64(3), frames)
	assert.Equal(t, int64(2), chat)
	assert.Equal(t, int64(1), sounds)

	var rec model.TrackRecord
	require.NoError(t, db.Where("name = ?", "run.dem").First(&rec).Error)
	assert.Equal(t, "de_inferno", rec.MapName)
	assert.Equal(t, "/demos/run.json", rec.Source)
	assert.Equal(t, 1.5, rec.Duration)
	assert.Equal(t, 3, rec.FrameCount)
	assert.Equal(t, 2, rec.Counts.ChatSegments)
	assert.NotEmpty(t, rec.Polyline)
}

func TestSaveGetRoundTrip(t *testing.T) {
	b := newTestBackend(t)

	saved := testTrack("run.dem")
	_, err := b.SaveTrack(saved, "", testReport())
	require.NoError(t, err)

	got, err := b.GetTrack("run.dem")
	require.NoError(t, err)

	assert.Equal(t, "run.dem", got.Name)
	assert.Equal(t, "de_inferno", got.MapName)
	assert.Equal(t, "cstrike", got.GameMod)
	require.Len(t, got.Frames, 3)

	first := got.Frames[0]
	assert.Equal(t, ghost.Vec3{0, 0, 64}, first.Origin)
	assert.Equal(t, ghost.Vec3{0, 90, 0}, first.ViewAngles)
	require.NotNil(t, first.FrameTime)
	assert.Equal(t, 0.5, *first.FrameTime)
	require.NotNil(t, first.Buttons)
	assert.Equal(t, uint32(0x401), *first.Buttons)
	require.NotNil(t, first.FOV)
	assert.Equal(t, float32(90), *first.FOV)

	second := got.Frames[1]
	require.Len(t, second.Extras.Sounds, 1)
	assert.Equal(t, "weapons/ak47-1.wav", second.Extras.Sounds[0].Name)
	require.NotNil(t, second.Extras.Sounds[0].Origin)
	assert.Equal(t, ghost.Vec3{128, -64, 32}, *second.Extras.Sounds[0].Origin)
	require.Len(t, second.Extras.Chat, 1)
	assert.Equal(t, "glhf", second.Extras.Chat[0].Text)

	third := got.Frames[2]
	require.NotNil(t, third.Anim.Sequence)
	assert.Equal(t, int32(12), *third.Anim.Sequence)
	require.NotNil(t, third.Extras.WeaponChange)
	assert.Equal(t, "weapon_awp", *third.Extras.WeaponChange)
}

func TestGetTrack_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.GetTrack("missing.dem")
	require.ErrorIs(t, err, ghost.ErrTrackNotFound)
}

func TestGetReport(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.SaveTrack(testTrack("run.dem"), "", testReport())
	require.NoError(t, err)

	report, err := b.GetReport("run.dem")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sounds)
	assert.Equal(t, 2, report.ChatSegments)
	assert.Equal(t, 1.5, report.Duration)

	_, err = b.GetReport("missing.dem")
	require.ErrorIs(t, err, ghost.ErrTrackNotFound)
}

func TestSaveTrack_ReplacesExisting(t *testing.T) {
	b := newTestBackend(t)

	first, err := b.SaveTrack(testTrack("run.dem"), "", testReport())
	require.NoError(t, err)

	replacement := &ghost.Track{
		Name:    "run.dem",
		MapName: "de_nuke",
		GameMod: "cstrike",
		Frames: []ghost.Frame{
			{Origin: ghost.Vec3{1, 1, 1}, FrameTime: f64p(0.1)},
			{Origin: ghost.Vec3{2, 2, 2}, FrameTime: f64p(0.1)},
		},
	}
	second, err := b.SaveTrack(replacement, "", reconstruct.Report{Frames: 2, Duration: 0.2})
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-saving a name keeps its id")

	var frames int64
	b.DB().Model(&model.FrameRecord{}).Where("track_id = ?", first).Count(&frames)
	assert.Equal(t, int64(2), frames, "old frame rows are replaced, not appended")

	got, err := b.GetTrack("run.dem")
	require.NoError(t, err)
	assert.Equal(t, "de_nuke", got.MapName)
	require.Len(t, got.Frames, 2)
}

func TestListTracks(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.SaveTrack(testTrack("bravo.dem"), "", testReport())
	require.NoError(t, err)
	_, err = b.SaveTrack(testTrack("alpha.dem"), "", testReport())
	require.NoError(t, err)

	summaries, err := b.ListTracks()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "alpha.dem", summaries[0].Name)
	assert.Equal(t, "bravo.dem", summaries[1].Name)
	assert.Equal(t, "de_inferno", summaries[0].MapName)
	assert.Equal(t, 3, summaries[0].FrameCount)
	assert.Equal(t, 1.5, summaries[0].Duration)
	assert.False(t, summaries[0].SavedAt.IsZero())
}

func TestDeleteTrack(t *testing.T) {
	b := newTestBackend(t)

	id, err := b.SaveTrack(testTrack("run.dem"), "", testReport())
	require.NoError(t, err)

	require.NoError(t, b.DeleteTrack("run.dem"))

	_, err = b.GetTrack("run.dem")
	require.ErrorIs(t, err, ghost.ErrTrackNotFound)

	var frames, chat, sounds int64
	b.DB().Model(&model.FrameRecord{}).Where("track_id = ?", id).Count(&frames)
	b.DB().Model(&model.ChatRecord{}).Where("track_id = ?", id).Count(&chat)
	b.DB().Model(&model.SoundRecord{}).Where("track_id = ?", id).Count(&sounds)
	assert.Zero(t, frames)
	assert.Zero(t, chat)
	assert.Zero(t, sounds)

	// The freed name can be saved again.
	_, err = b.SaveTrack(testTrack("run.dem"), "", testReport())
	require.NoError(t, err)
}

func TestDeleteTrack_NotFound(t *testing.T) {
	b := newTestBackend(t)
	require.ErrorIs(t, b.DeleteTrack("missing.dem"), ghost.ErrTrackNotFound)
}
