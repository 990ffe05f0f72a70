// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/demoghost/replay/internal/storage/memory/export/v1"
	"github.com/demoghost/replay/pkg/ghost"
)

// ExportTrack writes a stored track to disk in the v1 viewer format and
// returns the written path. The export is remembered for upload.
func (b *Backend) ExportTrack(name string) (string, error) {
	b.mu.RLock()
	e, ok := b.tracks[name]
	b.mu.RUnlock()
	if !ok {
		return "", ghost.ErrTrackNotFound
	}

	export := v1.Build(&v1.TrackData{
		Track:  e.track,
		Report: e.report,
		Source: e.source,
	})

	outputDir := b.cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := exportFilename(e.track.Name, e.savedAt.Format("20060102_150405"), b.cfg.CompressOutput)
	path := filepath.Join(outputDir, filename)

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(path, export)
	} else {
		err = writeJSON(path, export)
	}
	if err != nil {
		return "", err
	}

	meta := ghost.UploadMetadata{
		TrackName:  e.track.Name,
		MapName:    e.track.MapName,
		GameMod:    e.track.GameMod,
		Duration:   e.report.Duration,
		FrameCount: len(e.track.Frames),
	}

	b.mu.Lock()
	b.lastExportPath = path
	b.lastExportMeta = meta
	b.mu.Unlock()

	b.log.Info("Track exported", "name", name, "path", path)
	return path, nil
}

// exportFilename builds name_timestamp.json, sanitized for the filesystem.
func exportFilename(trackName, timestamp string, compressed bool) string {
	safeName := strings.ReplaceAll(trackName, " ", "_")
	safeName = strings.ReplaceAll(safeName, string(filepath.Separator), "_")

	ext := ".json"
	if compressed {
		ext = ".json.gz"
	}
	return fmt.Sprintf("%s_%s%s", safeName, timestamp, ext)
}

// writeJSON writes data as plain JSON.
func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// writeGzipJSON writes data as gzip-compressed JSON.
func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}
