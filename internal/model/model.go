package model

import (
	"database/sql"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&TrackRecord{},
	&FrameRecord{},
	&ChatRecord{},
	&SoundRecord{},
}

// DatabaseModelsPostGIS lists the tables whose geometry columns need PostGIS.
// The SQLite backend skips these during migration and never writes to them.
var DatabaseModelsPostGIS = []interface{}{
	&TrackPath{},
}

// ChatKinds maps engine print codes to their display destinations
var ChatKinds map[uint8]string = map[uint8]string{
	0: "Default",
	1: "Notify",
	2: "Console",
	3: "Chat",
	4: "Center",
}

////////////////////////
// TRACK MODELS
////////////////////////

// TrackRecord is the header row for one reconstructed track
type TrackRecord struct {
	gorm.Model
	Name       string  `json:"name" gorm:"size:200;index:idx_track_name"`
	MapName    string  `json:"mapName" gorm:"size:127"`
	GameMod    string  `json:"gameMod" gorm:"size:64;default:unknown"`
	Source     string  `json:"source" gorm:"size:255"` // demo dump path the track was built from
	Duration   float64 `json:"duration"`               // playback length in seconds
	FrameCount int     `json:"frameCount"`

	Polyline string `json:"polyline"` // Google-encoded XY path

	Counts ReportCounts `json:"counts" gorm:"embedded;embeddedPrefix:count_"`

	Frames []FrameRecord `json:"-"`
	Chat   []ChatRecord  `json:"-"`
	Sounds []SoundRecord `json:"-"`
}

func (*TrackRecord) TableName() string {
	return "tracks"
}

func (t *TrackRecord) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing TrackRecord
	err = db.Where("name = ?", t.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(t).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*t = existing
	return false, nil
}

// ReportCounts mirrors the reconstruction report counters for a stored track
type ReportCounts struct {
	Sounds         int `json:"sounds"`
	Texts          int `json:"texts"`
	ChatSegments   int `json:"chatSegments"`
	WeaponChanges  int `json:"weaponChanges"`
	SkippedSounds  int `json:"skippedSounds"`
	SkippedWeapons int `json:"skippedWeapons"`
	Resources      int `json:"resources"`
	Weapons        int `json:"weapons"`
	Players        int `json:"players"`
}

// FrameRecord is one reconstructed frame as a row.
// Nullable columns hold the frame fields whose absence is meaningful: NULL
// means the frame never asserted that field, not that it was zero.
type FrameRecord struct {
	ID         uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	TrackID    uint        `json:"trackId" gorm:"index:idx_framerecord_track_id"`
	Track      TrackRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:TrackID;"`
	FrameIndex uint        `json:"frameIndex" gorm:"index:idx_framerecord_frame_index"`

	Position   geom.Point `json:"position"`   // XY origin in map units
	ElevationZ float32    `json:"elevationZ"` // Z origin in map units
	Pitch      float32    `json:"pitch"`
	Yaw        float32    `json:"yaw"`
	Roll       float32    `json:"roll"`

	FrameTime sql.NullFloat64 `json:"frameTime" gorm:"default:NULL"` // seconds since the previous frame
	Buttons   sql.NullInt64   `json:"buttons" gorm:"default:NULL"`   // raw input bitfield
	FOV       sql.NullFloat64 `json:"fov" gorm:"default:NULL"`

	Sequence     sql.NullInt32   `json:"sequence" gorm:"default:NULL"`
	AnimFrame    sql.NullFloat64 `json:"animFrame" gorm:"default:NULL"`
	AnimTime     sql.NullFloat64 `json:"animTime" gorm:"default:NULL"`
	GaitSequence sql.NullInt32   `json:"gaitSequence" gorm:"default:NULL"`
	Blending0    sql.NullInt16   `json:"blending0" gorm:"default:NULL"`
	Blending1    sql.NullInt16   `json:"blending1" gorm:"default:NULL"`

	Extras datatypes.JSON `json:"extras" gorm:"type:jsonb;default:'{}'"` // one-shot events as JSON
}

func (*FrameRecord) TableName() string {
	return "frames"
}

// TrackPath is the full movement path of a track as one geometry row.
// LineStringZM coordinates carry [x, y, z, seconds] per vertex.
type TrackPath struct {
	ID      uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	TrackID uint          `json:"trackId" gorm:"uniqueIndex:idx_trackpath_track_id"`
	Track   TrackRecord   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:TrackID;"`
	Path    geom.Geometry `json:"-"`
}

func (*TrackPath) TableName() string {
	return "track_paths"
}

////////////////////////
// EVENT MODELS
////////////////////////

// ChatRecord is one decoded chat segment, kept as its own table so
// transcripts can be queried without walking frame extras
type ChatRecord struct {
	ID         uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	TrackID    uint        `json:"trackId" gorm:"index:idx_chatrecord_track_id"`
	Track      TrackRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:TrackID;"`
	FrameIndex uint        `json:"frameIndex" gorm:"index:idx_chatrecord_frame_index"`
	Kind       uint8       `json:"kind"` // engine print code, see ChatKinds
	Text       string      `json:"text"`
}

func (*ChatRecord) TableName() string {
	return "chat_lines"
}

// SoundRecord is one sound event keyed to the frame that started it
type SoundRecord struct {
	ID         uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	TrackID    uint        `json:"trackId" gorm:"index:idx_soundrecord_track_id"`
	Track      TrackRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:TrackID;"`
	FrameIndex uint        `json:"frameIndex" gorm:"index:idx_soundrecord_frame_index"`

	Name    string  `json:"name" gorm:"size:127;index:idx_soundrecord_name"` // sample path, e.g. weapons/ak47-1.wav
	Channel int32   `json:"channel"`
	Volume  float32 `json:"volume"`

	Position   geom.Point `json:"position"`                         // world origin when Positional
	ElevationZ float32    `json:"elevationZ"`                       // world Z when Positional
	Positional bool       `json:"positional" gorm:"default:false"` // false when the engine played the sound without a world position
}

func (*SoundRecord) TableName() string {
	return "sound_events"
}
