// Package mapsync keeps a map engine's marker source, layers and camera in
// step with the active record list and the current selection.
package mapsync

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// LngLat is a [longitude, latitude] pair.
type LngLat [2]float64

// Bounds is a [south-west, north-east] envelope.
type Bounds [2]LngLat

// Options configure a new engine instance.
type Options struct {
	Container   string  `json:"container"`
	Style       string  `json:"style"`
	Center      LngLat  `json:"center"`
	Zoom        float64 `json:"zoom"`
	Interactive bool    `json:"interactive"`
	TrackResize bool    `json:"trackResize"`
}

// SourceSpec describes a GeoJSON point source.
type SourceSpec struct {
	Data           *geojson.FeatureCollection `json:"data"`
	Cluster        bool                       `json:"cluster"`
	ClusterMaxZoom int                        `json:"clusterMaxZoom,omitempty"`
	ClusterRadius  int                        `json:"clusterRadius,omitempty"`
}

// LayerSpec describes a rendering layer bound to a source.
type LayerSpec struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// GeolocateOptions configure the user-location control.
type GeolocateOptions struct {
	HighAccuracy bool          `json:"enableHighAccuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaximumAge   time.Duration `json:"maximumAge"`
	TrackUser    bool          `json:"trackUserLocation"`
	ShowUser     bool          `json:"showUserLocation"`
}

// Pointer events raised on layers.
const (
	EventClick      = "click"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
)

// LayerEvent carries the properties of the topmost feature under the
// pointer.
type LayerEvent struct {
	Layer      string
	Properties map[string]any
}

// Clustered reports whether the event hit a cluster rather than a point.
func (e LayerEvent) Clustered() bool {
	c, _ := e.Properties["cluster"].(bool)
	return c
}

// Engine is the map engine surface the controller drives.
type Engine interface {
	// OnLoad registers fn to run once the engine style is ready.
	OnLoad(fn func())
	SetLayoutProperty(layer, name string, value any) error
	AddGeolocateControl(opts GeolocateOptions, position string, onError func(error)) error

	HasSource(id string) bool
	AddSource(id string, spec SourceSpec) error
	SetSourceData(id string, data *geojson.FeatureCollection) error
	HasLayer(id string) bool
	AddLayer(spec LayerSpec) error
	OnLayer(event, layer string, fn func(LayerEvent))

	SetCursor(cursor string)
	FitBounds(b Bounds, padding int)
	FlyTo(center LngLat, zoom float64)
	Resize()
}

// Factory creates an engine instance.
type Factory func(Options) (Engine, error)
