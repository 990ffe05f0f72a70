// internal/storage/storage.go
package storage

import (
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveTrack persists a reconstructed track with its source path and
	// report counters. Saving a name that already exists replaces the
	// earlier rows. Returns the backend's identifier for the track.
	SaveTrack(track *ghost.Track, source string, report reconstruct.Report) (uint, error)

	// GetTrack loads a stored track by name. Returns ghost.ErrTrackNotFound
	// when the name is unknown.
	GetTrack(name string) (*ghost.Track, error)

	// GetReport returns the reconstruction counters stored with a track.
	GetReport(name string) (reconstruct.Report, error)

	// ListTracks returns the stored track headers in name order.
	ListTracks() ([]ghost.TrackSummary, error)

	// DeleteTrack removes a stored track and its rows. Returns
	// ghost.ErrTrackNotFound when the name is unknown.
	DeleteTrack(name string) error
}

// Exporter is an optional interface for backends that can write a stored
// track to disk in the viewer format. Returns the written file path.
type Exporter interface {
	ExportTrack(name string) (string, error)
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay sharing server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() ghost.UploadMetadata
}
