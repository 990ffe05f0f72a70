package worker

import (
	"fmt"
	"log/slog"

	"github.com/demoghost/replay/internal/api"
	"github.com/demoghost/replay/internal/cache"
	"github.com/demoghost/replay/internal/influx"
	"github.com/demoghost/replay/internal/logging"
	"github.com/demoghost/replay/internal/queue"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/internal/session"
	"github.com/demoghost/replay/internal/storage"
	"github.com/demoghost/replay/internal/stream"
	"github.com/demoghost/replay/pkg/ghost"
)

// ErrNoBackend is returned when a command needs storage and none is configured
var ErrNoBackend = fmt.Errorf("no storage backend configured")

// Dependencies holds all dependencies for the worker manager.
// TrackCache, RecordCache, and Session must be set. Influx, API, and
// Streamer are optional integrations; commands that need a missing one
// fail with a descriptive error, metric writes are skipped silently.
type Dependencies struct {
	TrackCache  *cache.TrackCache
	RecordCache *cache.RecordCache
	LogManager  *logging.SlogManager
	Session     *session.Context

	Influx   *influx.Manager
	API      *api.Client
	Streamer *stream.Streamer

	Processed *cache.SafeCounter
	Failed    *cache.SafeCounter
}

// pendingSave is a reconstructed track whose save failed and is waiting on
// the retry queue.
type pendingSave struct {
	track  *ghost.Track
	source string
	report reconstruct.Report
}

// Manager routes pipeline commands to the storage backend and the optional
// integrations.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	retries *queue.Queue[pendingSave]
}

// NewManager creates a new worker manager. A nil backend is allowed; save
// and export commands then report ErrNoBackend.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
		retries: queue.New[pendingSave](),
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// PendingRetries returns how many failed saves wait in the retry queue.
func (m *Manager) PendingRetries() int {
	return m.retries.Len()
}

func (m *Manager) logger() *slog.Logger {
	if m.deps.LogManager == nil {
		return slog.Default()
	}
	return m.deps.LogManager.Logger()
}

func (m *Manager) countProcessed() {
	if m.deps.Processed != nil {
		m.deps.Processed.Inc()
	}
}

func (m *Manager) countFailed() {
	if m.deps.Failed != nil {
		m.deps.Failed.Inc()
	}
}
