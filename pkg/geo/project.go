// Package geo converts validated records into GeoJSON for the map layer and
// computes the envelope the viewport is fitted to.
package geo

import (
	"math"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
)

// Point is a record that can be placed on the map.
type Point interface {
	Coordinates() (lat, lng string)
	Properties() map[string]any
}

// LngLat parses the record coordinates. It reports false for values that do
// not parse or fall outside the valid latitude/longitude range.
func LngLat(p Point) (lng, lat float64, ok bool) {
	latStr, lngStr := p.Coordinates()
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || !finite(lat) || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(lngStr, 64)
	if err != nil || !finite(lng) || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lng, lat, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Project builds one point feature per record, in input order, with the
// record as the feature properties. Records whose coordinates do not parse
// are left out.
func Project[T Point](items []T) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		lng, lat, ok := LngLat(it)
		if !ok {
			continue
		}
		f := geojson.NewPointFeature([]float64{lng, lat})
		f.Properties = it.Properties()
		fc.AddFeature(f)
	}
	return fc
}
