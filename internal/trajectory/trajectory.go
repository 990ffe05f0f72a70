// Package trajectory derives path analytics from the frame origins of a
// reconstructed track: planar and 3D travel distance, the bounding box of
// the run, and a compact encoded polyline for listings and map previews.
package trajectory

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/twpayne/go-polyline"

	"github.com/demoghost/replay/pkg/ghost"
)

// ErrTooFewPoints is returned for tracks with fewer than two frames; a
// path needs at least one segment.
var ErrTooFewPoints = errors.New("path needs at least 2 points")

// Path is the movement path of one track. Vertices carry X/Y/Z from the
// frame origins and M with the cumulative playback time in seconds.
type Path struct {
	line geom.LineString
}

// Bounds is the axis-aligned box enclosing every path vertex.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Summary is the derived path metadata stored alongside a track.
type Summary struct {
	Points   int     `json:"points"`
	Length2D float64 `json:"length2D"`
	Length3D float64 `json:"length3D"`
	Duration float64 `json:"duration"`
	Bounds   Bounds  `json:"bounds"`
	Polyline string  `json:"polyline"`
}

// FromTrack builds the path of track, one vertex per frame.
func FromTrack(track *ghost.Track) (Path, error) {
	frames := track.Frames
	if len(frames) < 2 {
		return Path{}, fmt.Errorf("%w, got %d", ErrTooFewPoints, len(frames))
	}

	coords := make([]float64, 0, len(frames)*4)
	elapsed := 0.0
	for _, frame := range frames {
		if frame.FrameTime != nil {
			elapsed += *frame.FrameTime
		}
		coords = append(coords,
			float64(frame.Origin[0]),
			float64(frame.Origin[1]),
			float64(frame.Origin[2]),
			elapsed,
		)
	}

	seq := geom.NewSequence(coords, geom.DimXYZM)
	return Path{line: geom.NewLineString(seq)}, nil
}

// LineString exposes the underlying geometry.
func (p Path) LineString() geom.LineString {
	return p.line
}

// Geometry returns the path as a generic geometry for storage columns.
func (p Path) Geometry() geom.Geometry {
	return p.line.AsGeometry()
}

// Points returns the number of vertices.
func (p Path) Points() int {
	return p.line.Coordinates().Length()
}

// Length2D returns the planar path length, ignoring height changes.
func (p Path) Length2D() float64 {
	return p.line.Length()
}

// Length3D returns the path length including height changes.
func (p Path) Length3D() float64 {
	seq := p.line.Coordinates()
	total := 0.0
	for i := 1; i < seq.Length(); i++ {
		prev, curr := seq.Get(i-1), seq.Get(i)
		dx := curr.X - prev.X
		dy := curr.Y - prev.Y
		dz := curr.Z - prev.Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}

// Duration returns the playback time covered by the path in seconds.
func (p Path) Duration() float64 {
	seq := p.line.Coordinates()
	return seq.Get(seq.Length() - 1).M
}

// Bounds returns the axis-aligned box enclosing the path.
func (p Path) Bounds() Bounds {
	seq := p.line.Coordinates()

	first := seq.Get(0)
	b := Bounds{
		Min: [3]float64{first.X, first.Y, first.Z},
		Max: [3]float64{first.X, first.Y, first.Z},
	}
	for i := 1; i < seq.Length(); i++ {
		c := seq.Get(i)
		b.Min[0] = math.Min(b.Min[0], c.X)
		b.Min[1] = math.Min(b.Min[1], c.Y)
		b.Min[2] = math.Min(b.Min[2], c.Z)
		b.Max[0] = math.Max(b.Max[0], c.X)
		b.Max[1] = math.Max(b.Max[1], c.Y)
		b.Max[2] = math.Max(b.Max[2], c.Z)
	}
	return b
}

// EncodePolyline encodes the XY projection of the path in Google polyline
// format. Coordinates survive the round trip to 5 decimal places.
func (p Path) EncodePolyline() string {
	seq := p.line.Coordinates()
	coords := make([][]float64, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		coords[i] = []float64{c.X, c.Y}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes an encoded XY path back into coordinate pairs.
func DecodePolyline(encoded string) ([][]float64, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("error decoding polyline: %w", err)
	}
	return coords, nil
}

// Summarize builds the stored path metadata for track.
func Summarize(track *ghost.Track) (Summary, error) {
	path, err := FromTrack(track)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Points:   path.Points(),
		Length2D: path.Length2D(),
		Length3D: path.Length3D(),
		Duration: path.Duration(),
		Bounds:   path.Bounds(),
		Polyline: path.EncodePolyline(),
	}, nil
}
