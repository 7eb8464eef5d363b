package geo

import (
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
)

// Bounds is a south-west / north-east envelope in degrees.
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// SouthWest returns the [lng, lat] corner.
func (b Bounds) SouthWest() [2]float64 { return [2]float64{b.West, b.South} }

// NorthEast returns the [lng, lat] corner.
func (b Bounds) NorthEast() [2]float64 { return [2]float64{b.East, b.North} }

// Extent returns the envelope of every point feature in fc. It reports false
// when fc has no points.
func Extent(fc *geojson.FeatureCollection) (Bounds, bool) {
	if fc == nil {
		return Bounds{}, false
	}
	rect := s2.EmptyRect()
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 2 {
			continue
		}
		rect = rect.AddPoint(s2.LatLngFromDegrees(f.Geometry.Point[1], f.Geometry.Point[0]))
	}
	if rect.IsEmpty() {
		return Bounds{}, false
	}
	lo, hi := rect.Lo(), rect.Hi()
	return Bounds{
		West:  lo.Lng.Degrees(),
		South: lo.Lat.Degrees(),
		East:  hi.Lng.Degrees(),
		North: hi.Lat.Degrees(),
	}, true
}
