package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/demoghost/replay/pkg/ghost"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	track := ctx.GetTrack()
	assert.Equal(t, "no track loaded", track.Name)
	assert.Equal(t, "", ctx.GetSource())
	assert.False(t, ctx.Loaded(), "the placeholder track must not count as loaded")
}

func TestContext_SetTrack(t *testing.T) {
	ctx := NewContext()

	track := &ghost.Track{Name: "inferno-run.dem", MapName: "de_inferno"}
	ctx.SetTrack(track, "/demos/inferno-run.json.gz")

	assert.Same(t, track, ctx.GetTrack())
	assert.Equal(t, "/demos/inferno-run.json.gz", ctx.GetSource())
	assert.True(t, ctx.Loaded())
}
