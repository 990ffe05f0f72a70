// Package gormstorage implements track storage on a GORM connection. It is
// the shared core behind the sqlite and postgres backends: the dialect
// wrappers own their connections, this package owns the row lifecycle.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/demoghost/replay/internal/model"
	"github.com/demoghost/replay/internal/model/convert"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/internal/trajectory"
	"github.com/demoghost/replay/pkg/ghost"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB  *gorm.DB
	Log *slog.Logger
}

// Backend stores tracks on any GORM dialect. Path geometry rows are written
// only on postgres; every other table is portable.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Backend{deps: deps}
}

// DB exposes the underlying connection for the dialect wrappers.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects a connection before Init. Used by wrappers that connect
// lazily.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs dialect setup and schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection configured")
	}
	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true
	return nil
}

// Close is a no-op; the dialect wrapper owns the connection.
func (b *Backend) Close() error {
	return nil
}

// setupDB prepares dialect extensions and migrates tables.
func (b *Backend) setupDB() error {
	db := b.deps.DB

	models := make([]interface{}, 0, len(model.DatabaseModels)+len(model.DatabaseModelsPostGIS))
	models = append(models, model.DatabaseModels...)

	if b.isPostgres() {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		b.deps.Log.Info("PostGIS Extension created")
		models = append(models, model.DatabaseModelsPostGIS...)
	}

	b.deps.Log.Info("Migrating schema", "dialect", db.Name())
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (b *Backend) isPostgres() bool {
	return b.deps.DB != nil && b.deps.DB.Name() == "postgres"
}

// SaveTrack persists the header row plus the frame, chat, and sound rows of
// a track. A name that was saved before keeps its ID and gets fresh rows.
func (b *Backend) SaveTrack(track *ghost.Track, source string, report reconstruct.Report) (uint, error) {
	if !b.dbReady {
		return 0, fmt.Errorf("database not initialized")
	}
	db := b.deps.DB

	rec := convert.TrackToRecord(track, source, report)
	created, err := rec.GetOrInsert(db)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert track %s: %w", track.Name, err)
	}
	if !created {
		// Replacement keeps the row ID so callers holding it stay valid.
		id, createdAt := rec.ID, rec.CreatedAt
		rec = convert.TrackToRecord(track, source, report)
		rec.ID = id
		rec.CreatedAt = createdAt
		if err := db.Save(&rec).Error; err != nil {
			return 0, fmt.Errorf("failed to update track %s: %w", track.Name, err)
		}
		if err := b.purgeRows(rec.ID); err != nil {
			return 0, err
		}
	}

	frames := convert.TrackToFrameRecords(track)
	for i := range frames {
		frames[i].TrackID = rec.ID
	}
	if len(frames) > 0 {
		if err := db.Create(&frames).Error; err != nil {
			return 0, fmt.Errorf("failed to insert frames for %s: %w", track.Name, err)
		}
	}

	chat := convert.TrackToChatRecords(track)
	for i := range chat {
		chat[i].TrackID = rec.ID
	}
	if len(chat) > 0 {
		if err := db.Create(&chat).Error; err != nil {
			return 0, fmt.Errorf("failed to insert chat lines for %s: %w", track.Name, err)
		}
	}

	sounds := convert.TrackToSoundRecords(track)
	for i := range sounds {
		sounds[i].TrackID = rec.ID
	}
	if len(sounds) > 0 {
		if err := db.Create(&sounds).Error; err != nil {
			return 0, fmt.Errorf("failed to insert sound events for %s: %w", track.Name, err)
		}
	}

	if b.isPostgres() {
		pathRow, err := convert.TrackToPath(rec.ID, track)
		switch {
		case err == nil:
			if err := db.Create(&pathRow).Error; err != nil {
				return 0, fmt.Errorf("failed to insert path for %s: %w", track.Name, err)
			}
		case errors.Is(err, trajectory.ErrTooFewPoints):
			// Single-frame tracks have no line to store.
		default:
			return 0, fmt.Errorf("failed to build path for %s: %w", track.Name, err)
		}
	}

	b.deps.Log.Debug("Track saved", "name", track.Name, "id", rec.ID, "frames", len(frames))
	return rec.ID, nil
}

// purgeRows drops the child rows of a track before a replacement insert.
func (b *Backend) purgeRows(trackID uint) error {
	db := b.deps.DB

	children := []interface{}{&model.FrameRecord{}, &model.ChatRecord{}, &model.SoundRecord{}}
	if b.isPostgres() {
		children = append(children, &model.TrackPath{})
	}
	for _, child := range children {
		if err := db.Where("track_id = ?", trackID).Delete(child).Error; err != nil {
			return fmt.Errorf("failed to clear rows for track %d: %w", trackID, err)
		}
	}
	return nil
}

// GetTrack loads a stored track by name, frames in tick order.
func (b *Backend) GetTrack(name string) (*ghost.Track, error) {
	if !b.dbReady {
		return nil, fmt.Errorf("database not initialized")
	}
	db := b.deps.DB

	var rec model.TrackRecord
	if err := db.Where("name = ?", name).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ghost.ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to load track %s: %w", name, err)
	}

	var frames []model.FrameRecord
	if err := db.Where("track_id = ?", rec.ID).Order("frame_index asc").Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("failed to load frames for %s: %w", name, err)
	}

	return convert.RecordToTrack(rec, frames), nil
}

// GetReport rebuilds the reconstruction counters stored with a track.
func (b *Backend) GetReport(name string) (reconstruct.Report, error) {
	if !b.dbReady {
		return reconstruct.Report{}, fmt.Errorf("database not initialized")
	}

	var rec model.TrackRecord
	if err := b.deps.DB.Where("name = ?", name).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reconstruct.Report{}, ghost.ErrTrackNotFound
		}
		return reconstruct.Report{}, fmt.Errorf("failed to load track %s: %w", name, err)
	}
	return convert.ReportFromRecord(rec), nil
}

// ListTracks returns every stored track header in name order.
func (b *Backend) ListTracks() ([]ghost.TrackSummary, error) {
	if !b.dbReady {
		return nil, fmt.Errorf("database not initialized")
	}

	var recs []model.TrackRecord
	if err := b.deps.DB.Order("name asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	summaries := make([]ghost.TrackSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, ghost.TrackSummary{
			ID:         rec.ID,
			Name:       rec.Name,
			MapName:    rec.MapName,
			GameMod:    rec.GameMod,
			Duration:   rec.Duration,
			FrameCount: rec.FrameCount,
			SavedAt:    rec.CreatedAt,
		})
	}
	return summaries, nil
}

// DeleteTrack removes the header and rows of a stored track.
func (b *Backend) DeleteTrack(name string) error {
	if !b.dbReady {
		return fmt.Errorf("database not initialized")
	}
	db := b.deps.DB

	var rec model.TrackRecord
	if err := db.Where("name = ?", name).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ghost.ErrTrackNotFound
		}
		return fmt.Errorf("failed to find track %s: %w", name, err)
	}

	// Child rows go first so the result is the same whether or not the
	// dialect enforces foreign keys.
	if err := b.purgeRows(rec.ID); err != nil {
		return err
	}
	if err := db.Unscoped().Delete(&rec).Error; err != nil {
		return fmt.Errorf("failed to delete track %s: %w", name, err)
	}

	b.deps.Log.Debug("Track deleted", "name", name, "id", rec.ID)
	return nil
}
