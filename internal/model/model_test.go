package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"TrackRecord", &TrackRecord{}, "tracks"},
		{"FrameRecord", &FrameRecord{}, "frames"},
		{"TrackPath", &TrackPath{}, "track_paths"},
		{"ChatRecord", &ChatRecord{}, "chat_lines"},
		{"SoundRecord", &SoundRecord{}, "sound_events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelsCoverAllTables(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)

	seen := make(map[string]bool)
	for _, m := range DatabaseModels {
		named, ok := m.(interface{ TableName() string })
		assert.True(t, ok, "model %T has no TableName", m)
		seen[named.TableName()] = true
	}

	for _, table := range []string{"tracks", "frames", "chat_lines", "sound_events"} {
		assert.True(t, seen[table], "missing model for table %s", table)
	}
}

func TestPostGISModelsAreNotInPortableList(t *testing.T) {
	assert.Len(t, DatabaseModelsPostGIS, 1)

	for _, m := range DatabaseModelsPostGIS {
		assert.NotContains(t, DatabaseModels, m)
	}
}

func TestChatKinds(t *testing.T) {
	assert.Equal(t, "Chat", ChatKinds[3])
	assert.Equal(t, "Center", ChatKinds[4])
	assert.Len(t, ChatKinds, 5)
}
