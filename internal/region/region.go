package region

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Rect is a latitude/longitude-aligned bounding rectangle in decimal degrees.
type Rect struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Valid reports whether the minimums do not exceed the maximums.
func (r Rect) Valid() bool {
	return r.LatMin <= r.LatMax && r.LonMin <= r.LonMax
}

// String renders the rectangle as "lonMin,latMin,lonMax,latMax".
func (r Rect) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", r.LonMin, r.LatMin, r.LonMax, r.LatMax)
}

// RectFromBounds converts an XY envelope (X = longitude, Y = latitude) into a
// Rect. Empty or inverted envelopes are rejected.
func RectFromBounds(b *geom.Bounds) (Rect, error) {
	if b == nil || b.IsEmpty() {
		return Rect{}, formatError("geometry has no envelope", nil)
	}
	r := Rect{
		LonMin: b.Min(0),
		LatMin: b.Min(1),
		LonMax: b.Max(0),
		LatMax: b.Max(1),
	}
	if !r.Valid() {
		return Rect{}, formatError(fmt.Sprintf("inverted envelope %s", r), nil)
	}
	return r, nil
}

// Envelope returns the bounding box of g. Geometry collections are walked
// child by child so mixed members extend a single XY envelope.
func Envelope(g geom.T) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	extendEnvelope(b, g)
	return b
}

func extendEnvelope(b *geom.Bounds, g geom.T) {
	if g == nil {
		return
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, child := range gc.Geoms() {
			extendEnvelope(b, child)
		}
		return
	}
	if len(g.FlatCoords()) == 0 {
		return
	}
	b.Extend(g)
}

// Extract reads a KML document and returns the bounding rectangle of the
// first placemark in its first feature collection.
func Extract(r io.Reader) (Rect, error) {
	pm, err := FirstPlacemark(r)
	if err != nil {
		return Rect{}, err
	}
	return RectFromBounds(Envelope(pm.Geometry))
}

// ExtractFile opens path and calls Extract on it.
func ExtractFile(path string) (Rect, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rect{}, eris.Wrapf(err, "region: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return Extract(f)
}
