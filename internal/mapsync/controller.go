package mapsync

import (
	"fmt"
	"sync"
	"time"

	"beermap/pkg/geo"

	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"
)

// Source and layer identifiers.
const (
	SourceID    = "shops"
	PointLayer  = "shop-points"
	SymbolLayer = "shop-symbol"
)

// Fixed camera and clustering parameters.
const (
	DefaultStyle      = "geolonia/basic"
	DefaultZoom       = 8
	SelectZoom        = 17
	FitPadding        = 50
	ClusterRadius     = 25
	ClusterMaxZoom    = 14
	GeolocatePosition = "top-right"
)

// FallbackCenter is the initial camera position, central Niigata.
var FallbackCenter = LngLat{138.5, 37.9}

// hiddenLayers are base-style point-of-interest layers that would compete
// with the shop markers.
var hiddenLayers = []string{
	"poi",
	"poi-primary",
	"poi-r0-r9",
	"poi-r10-r24",
	"poi-r25",
	"poi-bus",
	"poi-entrance",
}

var geolocateOptions = GeolocateOptions{
	HighAccuracy: true,
	Timeout:      2 * time.Second,
	MaximumAge:   0,
	TrackUser:    true,
	ShowUser:     true,
}

// Controller owns one engine instance and mirrors the active feature
// collection and selection onto it. Data and selection set before the
// engine is ready are applied when it becomes ready.
type Controller struct {
	factory   Factory
	clustered bool
	onSelect  func(props map[string]any)
	log       *zap.Logger

	mu          sync.Mutex
	engine      Engine
	ready       bool
	layersReady bool
	data        *geojson.FeatureCollection
	selected    geo.Point
}

// Option customizes a Controller.
type Option func(*Controller)

// WithoutClustering renders every feature as an individual point, used by
// single-record maps.
func WithoutClustering() Option {
	return func(c *Controller) { c.clustered = false }
}

// WithSelect sets the callback invoked with the properties of a clicked,
// non-clustered point.
func WithSelect(fn func(props map[string]any)) Option {
	return func(c *Controller) { c.onSelect = fn }
}

func NewController(factory Factory, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		factory:   factory,
		clustered: true,
		onSelect:  func(map[string]any) {},
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize creates the engine attached to container. Later calls are
// no-ops while an engine exists.
func (c *Controller) Initialize(container string) error {
	c.mu.Lock()
	if c.engine != nil {
		c.mu.Unlock()
		return nil
	}
	eng, err := c.factory(Options{
		Container:   container,
		Style:       DefaultStyle,
		Center:      FallbackCenter,
		Zoom:        DefaultZoom,
		Interactive: true,
		TrackResize: true,
	})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create map engine: %w", err)
	}
	c.engine = eng
	c.mu.Unlock()

	eng.OnLoad(func() { c.handleLoad(eng) })
	return nil
}

func (c *Controller) handleLoad(eng Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != eng || c.ready {
		return
	}

	for _, id := range hiddenLayers {
		if err := eng.SetLayoutProperty(id, "visibility", "none"); err != nil {
			c.log.Warn("could not hide base layer", zap.String("layer", id), zap.Error(err))
		}
	}

	err := eng.AddGeolocateControl(geolocateOptions, GeolocatePosition, func(err error) {
		c.log.Warn("geolocation failed, map remains usable", zap.Error(err))
	})
	if err != nil {
		c.log.Warn("geolocate control unavailable, map remains usable", zap.Error(err))
	}

	c.ready = true
	if c.data != nil {
		c.syncLocked()
		c.fitLocked()
	}
	c.flyLocked()
}

// SetFeatures replaces the active feature collection, updating the marker
// source and fitting the viewport to it.
func (c *Controller) SetFeatures(fc *geojson.FeatureCollection) {
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = fc
	if !c.ready {
		return
	}
	c.syncLocked()
	c.fitLocked()
}

// Select moves the camera to p. A nil p clears the selection without
// moving the camera.
func (c *Controller) Select(p geo.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = p
	if c.ready {
		c.flyLocked()
	}
}

// OrientationChanged asks the engine to re-measure its container.
func (c *Controller) OrientationChanged() {
	c.mu.Lock()
	eng := c.engine
	c.mu.Unlock()
	if eng != nil {
		eng.Resize()
	}
}

// Close drops the engine. A later Initialize starts over with a new one.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine = nil
	c.ready = false
	c.layersReady = false
}

func (c *Controller) syncLocked() {
	eng := c.engine
	if eng.HasSource(SourceID) && c.layersReady {
		if err := eng.SetSourceData(SourceID, c.data); err != nil {
			c.log.Warn("could not update marker source", zap.Error(err))
		}
		return
	}

	if !eng.HasSource(SourceID) {
		spec := SourceSpec{Data: c.data}
		if c.clustered {
			spec.Cluster = true
			spec.ClusterMaxZoom = ClusterMaxZoom
			spec.ClusterRadius = ClusterRadius
		}
		if err := eng.AddSource(SourceID, spec); err != nil {
			c.log.Warn("could not add marker source", zap.Error(err))
			return
		}
	} else if err := eng.SetSourceData(SourceID, c.data); err != nil {
		c.log.Warn("could not update marker source", zap.Error(err))
	}

	if c.layersReady {
		return
	}
	for _, spec := range []LayerSpec{pointLayer(), symbolLayer()} {
		if eng.HasLayer(spec.ID) {
			continue
		}
		if err := eng.AddLayer(spec); err != nil {
			c.log.Warn("could not add marker layer", zap.String("layer", spec.ID), zap.Error(err))
			return
		}
	}
	for _, id := range []string{PointLayer, SymbolLayer} {
		eng.OnLayer(EventMouseEnter, id, func(LayerEvent) { eng.SetCursor("pointer") })
		eng.OnLayer(EventMouseLeave, id, func(LayerEvent) { eng.SetCursor("") })
		eng.OnLayer(EventClick, id, c.handleClick)
	}
	c.layersReady = true
}

func (c *Controller) handleClick(ev LayerEvent) {
	// Cluster expansion is the engine's job.
	if ev.Clustered() {
		return
	}
	c.onSelect(ev.Properties)
}

func (c *Controller) fitLocked() {
	if c.data == nil || len(c.data.Features) == 0 {
		return
	}
	b, ok := geo.Extent(c.data)
	if !ok {
		return
	}
	c.engine.FitBounds(Bounds{b.SouthWest(), b.NorthEast()}, FitPadding)
}

func (c *Controller) flyLocked() {
	if c.selected == nil {
		return
	}
	lng, lat, ok := geo.LngLat(c.selected)
	if !ok {
		return
	}
	c.engine.FlyTo(LngLat{lng, lat}, SelectZoom)
}

var pointFilter = []any{"all", []any{"==", "$type", "Point"}}

func pointLayer() LayerSpec {
	return LayerSpec{
		ID:     PointLayer,
		Type:   "circle",
		Source: SourceID,
		Filter: pointFilter,
		Paint: map[string]any{
			"circle-radius":         13,
			"circle-color":          "#FF0000",
			"circle-opacity":        0.4,
			"circle-stroke-width":   2,
			"circle-stroke-color":   "#FFFFFF",
			"circle-stroke-opacity": 1,
		},
	}
}

func symbolLayer() LayerSpec {
	return LayerSpec{
		ID:     SymbolLayer,
		Type:   "symbol",
		Source: SourceID,
		Filter: pointFilter,
		Paint: map[string]any{
			"text-color":      "#000000",
			"text-halo-color": "#FFFFFF",
			"text-halo-width": 2,
		},
		Layout: map[string]any{
			"text-field":           "{スポット名}",
			"text-font":            []string{"Noto Sans Regular"},
			"text-variable-anchor": []string{"top", "bottom", "left", "right"},
			"text-radial-offset":   0.5,
			"text-justify":         "auto",
			"text-size":            12,
			"text-anchor":          "top",
			"text-max-width":       12,
			"text-allow-overlap":   false,
		},
	}
}
