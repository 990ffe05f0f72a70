package playback

import (
	"errors"
	"strings"

	"github.com/demoghost/replay/pkg/ghost"
)

// Entry is one timestamped line of a track transcript.
type Entry struct {
	// Time is the recorded time of the frame carrying the event, in
	// seconds from track start. Tracks without timing data stamp every
	// entry at zero.
	Time float64
	Line string
}

// Transcript flattens a track's discrete events into timestamped lines,
// oldest first. Sounds, texts, chat lines, and weapon changes each become
// one entry; frames without events contribute nothing. A FrameTimeOverride
// option stamps entries at the fixed rate instead of the stored durations.
func Transcript(track *ghost.Track, opts ...Option) ([]Entry, error) {
	p := NewPlayer(track, ModeImmediate, opts...)

	var entries []Entry
	elapsed := 0.0
	for {
		u, err := p.Advance(0)
		if errors.Is(err, ghost.ErrEndOfStream) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}

		// FrameTime is the span ending at this frame, so the frame's own
		// time is the running total including it.
		switch {
		case p.override != nil:
			elapsed += *p.override
		case u.Frame.FrameTime != nil:
			elapsed += *u.Frame.FrameTime
		}
		for _, extras := range u.Events {
			entries = append(entries, describe(elapsed, extras)...)
		}
	}
}

// describe renders one frame's extras as transcript entries.
func describe(at float64, extras ghost.FrameExtras) []Entry {
	var out []Entry
	for _, s := range extras.Sounds {
		out = append(out, Entry{Time: at, Line: "sound " + s.Name})
	}
	for _, t := range extras.Texts {
		out = append(out, Entry{Time: at, Line: "text " + t.Text})
	}
	if len(extras.Chat) > 0 {
		var b strings.Builder
		for _, seg := range extras.Chat {
			b.WriteString(seg.Text)
		}
		out = append(out, Entry{Time: at, Line: "chat " + b.String()})
	}
	if extras.WeaponChange != nil {
		out = append(out, Entry{Time: at, Line: "weapon " + *extras.WeaponChange})
	}
	return out
}
