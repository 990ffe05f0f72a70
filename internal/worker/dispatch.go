package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/demoghost/replay/internal/dispatcher"
	"github.com/demoghost/replay/internal/influx"
	"github.com/demoghost/replay/internal/playback"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/internal/storage"
	"github.com/demoghost/replay/internal/trajectory"
	"github.com/demoghost/replay/pkg/demo"
	"github.com/demoghost/replay/pkg/ghost"
)

// RegisterHandlers registers all pipeline command handlers with the
// dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Reconstruction is sync so the session and caches are populated
	// before any follow-up command runs.
	d.Register("demo:reconstruct", m.handleReconstruct, dispatcher.Logged())

	// Track commands read what reconstruction cached.
	d.Register("track:export", m.handleExport, dispatcher.Logged())
	d.Register("track:upload", m.handleUpload, dispatcher.Logged())
	d.Register("track:stream", m.handleStream, dispatcher.Logged())
	d.Register("track:transcript", m.handleTranscript, dispatcher.Logged())
	d.Register("track:retry", m.handleRetry, dispatcher.Logged())

	// Ad-hoc metrics - buffered, fire-and-forget
	d.Register("stats", m.handleStats, dispatcher.Buffered(1000), dispatcher.Logged())
}

// handleReconstruct loads a demo dump, reconstructs its ghost track, and
// saves the result. The track is cached and set as the session track even
// when the save fails, so export and stream can still run from memory.
func (m *Manager) handleReconstruct(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 || e.Args[0] == "" {
		return nil, fmt.Errorf("%s needs a demo file path", e.Command)
	}
	source := e.Args[0]

	d, err := demo.LoadFile(source)
	if err != nil {
		m.countFailed()
		return nil, fmt.Errorf("failed to load demo: %w", err)
	}

	name := filepath.Base(source)
	track, report, err := reconstruct.New(m.logger()).Reconstruct(name, d)
	if err != nil {
		m.countFailed()
		return nil, fmt.Errorf("failed to reconstruct %s: %w", name, err)
	}

	m.deps.Session.SetTrack(track, source)
	m.deps.TrackCache.AddTrack(track)
	m.deps.TrackCache.AddReport(track.Name, *report)

	if m.hasBackend() {
		id, err := m.backend.SaveTrack(track, source, *report)
		if err != nil {
			m.retries.Push(pendingSave{track: track, source: source, report: *report})
			m.countFailed()
			return nil, fmt.Errorf("failed to save track %s: %w", track.Name, err)
		}
		m.deps.RecordCache.Set(track.Name, id)

		// A successful save means the backend is healthy again; pick up
		// anything an earlier failure left behind.
		if !m.retries.Empty() {
			if n, err := m.flushRetries(); err != nil {
				m.logger().Error("Retry flush incomplete", "saved", n, "pending", m.retries.Len(), "error", err)
			}
		}
	}

	m.writeReconstructionPoints(track, source, *report)
	m.countProcessed()

	return report, nil
}

// handleExport writes a stored track to disk in the viewer format and
// returns the written path.
func (m *Manager) handleExport(e dispatcher.Event) (any, error) {
	if !m.hasBackend() {
		return nil, ErrNoBackend
	}
	exporter, ok := m.backend.(storage.Exporter)
	if !ok {
		return nil, fmt.Errorf("storage backend cannot export tracks")
	}

	name, err := m.trackName(e)
	if err != nil {
		return nil, err
	}

	path, err := exporter.ExportTrack(name)
	if err != nil {
		return nil, fmt.Errorf("failed to export track %s: %w", name, err)
	}
	return path, nil
}

// handleUpload exports a stored track and pushes the file to the sharing
// server. The export runs every time so the upload metadata describes the
// named track, not whatever was exported last.
func (m *Manager) handleUpload(e dispatcher.Event) (any, error) {
	if m.deps.API == nil {
		return nil, fmt.Errorf("no api client configured")
	}
	if !m.hasBackend() {
		return nil, ErrNoBackend
	}
	exporter, ok := m.backend.(storage.Exporter)
	if !ok {
		return nil, fmt.Errorf("storage backend cannot export tracks")
	}
	uploadable, ok := m.backend.(storage.Uploadable)
	if !ok {
		return nil, fmt.Errorf("storage backend cannot upload tracks")
	}

	name, err := m.trackName(e)
	if err != nil {
		return nil, err
	}

	if _, err := exporter.ExportTrack(name); err != nil {
		return nil, fmt.Errorf("failed to export track %s: %w", name, err)
	}

	meta := uploadable.GetExportMetadata()
	if err := m.deps.API.UploadTrack(uploadable.GetExportedFilePath(), meta); err != nil {
		return nil, fmt.Errorf("failed to upload track %s: %w", name, err)
	}
	return fmt.Sprintf("uploaded %s (%d frames)", meta.TrackName, meta.FrameCount), nil
}

// handleStream replays a track to the configured viewer server.
func (m *Manager) handleStream(e dispatcher.Event) (any, error) {
	if m.deps.Streamer == nil {
		return nil, fmt.Errorf("no stream server configured")
	}

	name, err := m.trackName(e)
	if err != nil {
		return nil, err
	}
	track, err := m.loadTrack(name)
	if err != nil {
		return nil, err
	}

	if err := m.deps.Streamer.SendTrack(track); err != nil {
		return nil, fmt.Errorf("failed to stream track %s: %w", name, err)
	}
	return fmt.Sprintf("streamed %d frames", len(track.Frames)), nil
}

// handleTranscript renders a track's discrete events as timestamped lines.
func (m *Manager) handleTranscript(e dispatcher.Event) (any, error) {
	name, err := m.trackName(e)
	if err != nil {
		return nil, err
	}
	track, err := m.loadTrack(name)
	if err != nil {
		return nil, err
	}

	var opts []playback.Option
	if override := viper.GetFloat64("playback.frameTimeOverride"); override > 0 {
		opts = append(opts, playback.FrameTimeOverride(override))
	}
	entries, err := playback.Transcript(track, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcript for %s: %w", name, err)
	}

	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "%9.3f  %s\n", entry.Time, entry.Line)
	}
	return b.String(), nil
}

// handleRetry re-attempts saves that failed while the backend was down.
func (m *Manager) handleRetry(e dispatcher.Event) (any, error) {
	if !m.hasBackend() {
		return nil, ErrNoBackend
	}

	saved, err := m.flushRetries()
	if err != nil {
		return nil, fmt.Errorf("failed to flush retry queue (%d saved, %d still pending): %w", saved, m.retries.Len(), err)
	}
	return fmt.Sprintf("saved %d pending tracks", saved), nil
}

// handleStats parses an ad-hoc metric from the command arguments and writes
// it to influx.
func (m *Manager) handleStats(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, fmt.Errorf("no influx client configured")
	}

	bucket, point, err := influx.ProcessMetricData(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}

	if err := m.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}

// trackName resolves the track a command targets: the first argument wins,
// otherwise the track currently in the session. The session's placeholder
// track does not resolve.
func (m *Manager) trackName(e dispatcher.Event) (string, error) {
	if len(e.Args) > 0 && e.Args[0] != "" {
		return e.Args[0], nil
	}
	if m.deps.Session.Loaded() {
		return m.deps.Session.GetTrack().Name, nil
	}
	return "", fmt.Errorf("%s needs a track name and no demo is loaded", e.Command)
}

// loadTrack returns the named track from the cache, falling back to the
// storage backend on a miss.
func (m *Manager) loadTrack(name string) (*ghost.Track, error) {
	if track, ok := m.deps.TrackCache.GetTrack(name); ok {
		return track, nil
	}
	if !m.hasBackend() {
		return nil, fmt.Errorf("track %s: %w", name, ghost.ErrTrackNotFound)
	}

	track, err := m.backend.GetTrack(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load track %s: %w", name, err)
	}
	m.deps.TrackCache.AddTrack(track)
	return track, nil
}

// flushRetries drains the retry queue once. Saves that fail again go back
// on the queue for a later flush.
func (m *Manager) flushRetries() (int, error) {
	saved := 0
	var firstErr error
	for _, p := range m.retries.Drain() {
		id, err := m.backend.SaveTrack(p.track, p.source, p.report)
		if err != nil {
			m.retries.Push(p)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.deps.RecordCache.Set(p.track.Name, id)
		saved++
	}
	return saved, firstErr
}

// writeReconstructionPoints pushes the per-demo report and path stats to
// influx. Metric writes never fail the command; failures are logged.
func (m *Manager) writeReconstructionPoints(track *ghost.Track, source string, report reconstruct.Report) {
	if m.deps.Influx == nil {
		return
	}
	ctx := context.Background()

	if err := m.deps.Influx.WritePoint(ctx, influx.BucketProcessing, influx.ReportPoint(track, source, report)); err != nil {
		m.logger().Error("Failed to write reconstruction point", "track", track.Name, "error", err)
	}

	path, err := trajectory.Summarize(track)
	if err != nil {
		// Tracks under two frames have no path to measure.
		m.logger().Debug("Skipping track stats point", "track", track.Name, "error", err)
		return
	}
	if err := m.deps.Influx.WritePoint(ctx, influx.BucketTrackStats, influx.TrackStatsPoint(track, path)); err != nil {
		m.logger().Error("Failed to write track stats point", "track", track.Name, "error", err)
	}
}
