// internal/storage/memory/memory.go
package memory

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// Config holds settings for the in-memory backend.
type Config struct {
	OutputDir      string // directory for viewer exports
	CompressOutput bool   // gzip exported JSON
}

// entry groups a saved track with the data recorded alongside it.
type entry struct {
	id      uint
	track   *ghost.Track
	source  string
	report  reconstruct.Report
	savedAt time.Time
}

// Backend stores tracks in process memory and exports them as viewer JSON.
// It is the default backend when no database is configured.
type Backend struct {
	cfg Config
	log *slog.Logger

	mu        sync.RWMutex
	tracks    map[string]*entry // keyed by track name
	idCounter uint

	lastExportPath string
	lastExportMeta ghost.UploadMetadata
}

// New creates a new in-memory storage backend.
func New(cfg Config, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		cfg:    cfg,
		log:    log,
		tracks: make(map[string]*entry),
	}
}

// Init is a no-op; the maps are ready after New.
func (b *Backend) Init() error {
	return nil
}

// Close is a no-op; nothing is flushed because exports are explicit.
func (b *Backend) Close() error {
	return nil
}

// SaveTrack stores the track under its name. Re-saving a name keeps the
// entry's identifier and replaces everything else.
func (b *Backend) SaveTrack(track *ghost.Track, source string, report reconstruct.Report) (uint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uint(0)
	if existing, ok := b.tracks[track.Name]; ok {
		id = existing.id
	} else {
		b.idCounter++
		id = b.idCounter
	}

	b.tracks[track.Name] = &entry{
		id:      id,
		track:   track,
		source:  source,
		report:  report,
		savedAt: time.Now(),
	}

	b.log.Debug("Track saved", "name", track.Name, "id", id, "frames", len(track.Frames))
	return id, nil
}

// GetTrack returns a stored track by name.
func (b *Backend) GetTrack(name string) (*ghost.Track, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.tracks[name]
	if !ok {
		return nil, ghost.ErrTrackNotFound
	}
	return e.track, nil
}

// GetReport returns the reconstruction counters stored with a track.
func (b *Backend) GetReport(name string) (reconstruct.Report, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.tracks[name]
	if !ok {
		return reconstruct.Report{}, ghost.ErrTrackNotFound
	}
	return e.report, nil
}

// ListTracks returns the stored track headers in name order.
func (b *Backend) ListTracks() ([]ghost.TrackSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	summaries := make([]ghost.TrackSummary, 0, len(b.tracks))
	for _, e := range b.tracks {
		summaries = append(summaries, ghost.TrackSummary{
			ID:         e.id,
			Name:       e.track.Name,
			MapName:    e.track.MapName,
			GameMod:    e.track.GameMod,
			Duration:   e.report.Duration,
			FrameCount: len(e.track.Frames),
			SavedAt:    e.savedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// DeleteTrack removes a stored track.
func (b *Backend) DeleteTrack(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.tracks[name]; !ok {
		return ghost.ErrTrackNotFound
	}
	delete(b.tracks, name)
	return nil
}

// GetExportedFilePath returns the path of the most recent export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the metadata of the most recent export.
func (b *Backend) GetExportMetadata() ghost.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
