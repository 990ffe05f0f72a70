package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/internal/trajectory"
	"github.com/demoghost/replay/pkg/ghost"
)

// ReportPoint builds the demo_processing measurement for one reconstruction
// run. Counters come straight from the report so dashboards can spot demos
// with unusual skip rates.
func ReportPoint(track *ghost.Track, source string, r reconstruct.Report) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("reconstruction").
		AddTag("map", track.MapName).
		AddTag("mod", track.GameMod).
		AddField("track", track.Name).
		AddField("source", source).
		AddField("frames", r.Frames).
		AddField("sounds", r.Sounds).
		AddField("texts", r.Texts).
		AddField("chat_segments", r.ChatSegments).
		AddField("weapon_changes", r.WeaponChanges).
		AddField("skipped_sounds", r.SkippedSounds).
		AddField("skipped_weapons", r.SkippedWeapons).
		AddField("resources", r.Resources).
		AddField("weapons", r.Weapons).
		AddField("players", r.Players).
		AddField("duration_s", r.Duration).
		AddField("elapsed_ms", r.Elapsed.Milliseconds()).
		SetTime(time.Now())
}

// TrackStatsPoint builds the track_stats measurement from a reconstructed
// track and its path summary.
func TrackStatsPoint(track *ghost.Track, path trajectory.Summary) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("track").
		AddTag("map", track.MapName).
		AddTag("mod", track.GameMod).
		AddField("track", track.Name).
		AddField("frames", len(track.Frames)).
		AddField("duration_s", track.Duration(nil)).
		AddField("points", path.Points).
		AddField("length_2d", path.Length2D).
		AddField("length_3d", path.Length3D).
		SetTime(time.Now())
}
