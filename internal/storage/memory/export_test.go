// internal/storage/memory/export_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v1 "github.com/demoghost/replay/internal/storage/memory/export/v1"
	"github.com/demoghost/replay/internal/reconstruct"
	"github.com/demoghost/replay/pkg/ghost"
)

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name       string
		timestamp  string
		compressed bool
		expected   string
	}{
		{"run.dem", "20260115_103000", false, "run.dem_20260115_103000.json"},
		{"run.dem", "20260115_103000", true, "run.dem_20260115_103000.json.gz"},
		{"my run.dem", "20260115_103000", false, "my_run.dem_20260115_103000.json"},
	}

	for _, tt := range tests {
		result := exportFilename(tt.name, tt.timestamp, tt.compressed)
		if result != tt.expected {
			t.Errorf("exportFilename(%q) = %q, want %q", tt.name, result, tt.expected)
		}
	}
}

func TestExportTrack(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutputDir: dir}, nil)

	track := newTrack("inferno-run.dem", 3)
	report := reconstruct.Report{Frames: 3, Duration: 0.3}
	_, _ = b.SaveTrack(track, "/demos/inferno-run.json", report)

	path, err := b.ExportTrack("inferno-run.dem")
	if err != nil {
		t.Fatalf("ExportTrack failed: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("export written outside output dir: %s", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "inferno-run.dem_") {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}
	if !strings.HasSuffix(path, ".json") {
		t.Errorf("expected a plain .json file, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var export v1.Export
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if export.TrackName != "inferno-run.dem" {
		t.Errorf("expected trackName in export, got %q", export.TrackName)
	}
	if len(export.Frames) != 3 {
		t.Errorf("expected 3 frame rows, got %d", len(export.Frames))
	}
	if export.Duration != 0.3 {
		t.Errorf("expected duration 0.3, got %v", export.Duration)
	}
}

func TestExportTrack_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutputDir: dir, CompressOutput: true}, nil)

	_, _ = b.SaveTrack(newTrack("run.dem", 2), "", reconstruct.Report{Frames: 2})

	path, err := b.ExportTrack("run.dem")
	if err != nil {
		t.Fatalf("ExportTrack failed: %v", err)
	}
	if !strings.HasSuffix(path, ".json.gz") {
		t.Fatalf("expected .json.gz, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("export is not gzip: %v", err)
	}
	defer gz.Close()

	var export v1.Export
	if err := json.NewDecoder(gz).Decode(&export); err != nil {
		t.Fatalf("decoding gzip export: %v", err)
	}
	if export.FrameCount != 2 {
		t.Errorf("expected 2 frames, got %d", export.FrameCount)
	}
}

func TestExportTrack_SetsUploadState(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutputDir: dir}, nil)

	_, _ = b.SaveTrack(newTrack("run.dem", 2), "", reconstruct.Report{Frames: 2, Duration: 0.2})

	path, err := b.ExportTrack("run.dem")
	if err != nil {
		t.Fatalf("ExportTrack failed: %v", err)
	}

	if got := b.GetExportedFilePath(); got != path {
		t.Errorf("GetExportedFilePath() = %q, want %q", got, path)
	}

	meta := b.GetExportMetadata()
	if meta.TrackName != "run.dem" {
		t.Errorf("metadata track name = %q", meta.TrackName)
	}
	if meta.MapName != "de_dust2" || meta.GameMod != "cstrike" {
		t.Errorf("metadata header fields wrong: %+v", meta)
	}
	if meta.Duration != 0.2 || meta.FrameCount != 2 {
		t.Errorf("metadata counters wrong: %+v", meta)
	}
}

func TestExportTrack_NotFound(t *testing.T) {
	b := New(Config{OutputDir: t.TempDir()}, nil)

	_, err := b.ExportTrack("missing.dem")
	if !errors.Is(err, ghost.ErrTrackNotFound) {
		t.Errorf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestExportTrack_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	b := New(Config{OutputDir: dir}, nil)

	_, _ = b.SaveTrack(newTrack("run.dem", 2), "", reconstruct.Report{})

	path, err := b.ExportTrack("run.dem")
	if err != nil {
		t.Fatalf("ExportTrack failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}
