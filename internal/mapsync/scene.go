package mapsync

import (
	"errors"
	"fmt"
	"sync"

	geojson "github.com/paulmach/go.geojson"
)

var (
	ErrNoLayer  = errors.New("mapsync: no such layer")
	ErrNoSource = errors.New("mapsync: no such source")
	ErrExists   = errors.New("mapsync: already exists")
)

// BaseStyleLayers are the layers a fresh scene starts with.
var BaseStyleLayers = append([]string{"background", "water", "road"}, hiddenLayers...)

// Camera is the scene viewport.
type Camera struct {
	Center  LngLat  `json:"center"`
	Zoom    float64 `json:"zoom"`
	Bounds  *Bounds `json:"bounds,omitempty"`
	Padding int     `json:"padding,omitempty"`
	Fits    int     `json:"fits"`
	Flights int     `json:"flights"`
}

type Control struct {
	Kind     string           `json:"kind"`
	Position string           `json:"position"`
	Options  GeolocateOptions `json:"options"`
}

// Scene is the serializable state of a SceneEngine.
type Scene struct {
	Options Options               `json:"options"`
	Loaded  bool                  `json:"loaded"`
	Hidden  []string              `json:"hidden"`
	Sources map[string]SourceSpec `json:"sources"`
	Layers  []LayerSpec           `json:"layers"`
	Control []Control             `json:"controls"`
	Camera  Camera                `json:"camera"`
	Cursor  string                `json:"cursor"`
	Resizes int                   `json:"resizes"`
}

// SceneEngine is an in-process Engine. It keeps the source/layer graph and
// camera as plain state that thin clients render, and lets callers raise
// load and pointer events. Handlers run without the engine lock held.
type SceneEngine struct {
	mu         sync.Mutex
	scene      Scene
	baseLayers map[string]bool
	onLoad     []func()
	handlers   map[string][]func(LayerEvent)
	onGeoError func(error)

	// GeolocateErr, when set, makes AddGeolocateControl fail.
	GeolocateErr error
}

var _ Engine = (*SceneEngine)(nil)

func NewSceneEngine(opts Options, baseLayers ...string) *SceneEngine {
	base := make(map[string]bool, len(baseLayers))
	for _, l := range baseLayers {
		base[l] = true
	}
	return &SceneEngine{
		scene: Scene{
			Options: opts,
			Sources: make(map[string]SourceSpec),
			Camera:  Camera{Center: opts.Center, Zoom: opts.Zoom},
		},
		baseLayers: base,
		handlers:   make(map[string][]func(LayerEvent)),
	}
}

// SceneFactory creates SceneEngines and remembers the most recent one.
type SceneFactory struct {
	BaseLayers []string

	mu      sync.Mutex
	created []*SceneEngine
}

func (f *SceneFactory) New(opts Options) (Engine, error) {
	e := NewSceneEngine(opts, f.BaseLayers...)
	f.mu.Lock()
	f.created = append(f.created, e)
	f.mu.Unlock()
	return e, nil
}

// Created returns how many engines the factory produced.
func (f *SceneFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// Last returns the most recently created engine, or nil.
func (f *SceneFactory) Last() *SceneEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

func handlerKey(event, layer string) string {
	return event + "\x00" + layer
}

func (e *SceneEngine) OnLoad(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLoad = append(e.onLoad, fn)
}

// Load marks the style ready and runs the load handlers once.
func (e *SceneEngine) Load() {
	e.mu.Lock()
	if e.scene.Loaded {
		e.mu.Unlock()
		return
	}
	e.scene.Loaded = true
	fns := append([]func(){}, e.onLoad...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (e *SceneEngine) SetLayoutProperty(layer, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.baseLayers[layer] {
		if name == "visibility" && value == "none" {
			e.scene.Hidden = append(e.scene.Hidden, layer)
		}
		return nil
	}
	for i := range e.scene.Layers {
		if e.scene.Layers[i].ID == layer {
			if e.scene.Layers[i].Layout == nil {
				e.scene.Layers[i].Layout = map[string]any{}
			}
			e.scene.Layers[i].Layout[name] = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoLayer, layer)
}

func (e *SceneEngine) AddGeolocateControl(opts GeolocateOptions, position string, onError func(error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.GeolocateErr != nil {
		return e.GeolocateErr
	}
	e.scene.Control = append(e.scene.Control, Control{Kind: "geolocate", Position: position, Options: opts})
	e.onGeoError = onError
	return nil
}

// FailGeolocation reports a location failure to the geolocate control.
func (e *SceneEngine) FailGeolocation(err error) {
	e.mu.Lock()
	fn := e.onGeoError
	e.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (e *SceneEngine) HasSource(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.scene.Sources[id]
	return ok
}

func (e *SceneEngine) AddSource(id string, spec SourceSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.scene.Sources[id]; ok {
		return fmt.Errorf("%w: source %s", ErrExists, id)
	}
	e.scene.Sources[id] = spec
	return nil
}

func (e *SceneEngine) SetSourceData(id string, data *geojson.FeatureCollection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	spec, ok := e.scene.Sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSource, id)
	}
	spec.Data = data
	e.scene.Sources[id] = spec
	return nil
}

func (e *SceneEngine) HasLayer(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasLayerLocked(id)
}

func (e *SceneEngine) hasLayerLocked(id string) bool {
	if e.baseLayers[id] {
		return true
	}
	for _, l := range e.scene.Layers {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (e *SceneEngine) AddLayer(spec LayerSpec) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasLayerLocked(spec.ID) {
		return fmt.Errorf("%w: layer %s", ErrExists, spec.ID)
	}
	if _, ok := e.scene.Sources[spec.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSource, spec.Source)
	}
	e.scene.Layers = append(e.scene.Layers, spec)
	return nil
}

func (e *SceneEngine) OnLayer(event, layer string, fn func(LayerEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := handlerKey(event, layer)
	e.handlers[k] = append(e.handlers[k], fn)
}

// HandlerCount reports how many handlers are registered for event on layer.
func (e *SceneEngine) HandlerCount(event, layer string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[handlerKey(event, layer)])
}

func (e *SceneEngine) dispatch(event, layer string, props map[string]any) {
	e.mu.Lock()
	fns := append([]func(LayerEvent){}, e.handlers[handlerKey(event, layer)]...)
	e.mu.Unlock()
	ev := LayerEvent{Layer: layer, Properties: props}
	for _, fn := range fns {
		fn(ev)
	}
}

// Click raises a click on layer for a feature with props.
func (e *SceneEngine) Click(layer string, props map[string]any) {
	e.dispatch(EventClick, layer, props)
}

func (e *SceneEngine) Hover(layer string) { e.dispatch(EventMouseEnter, layer, nil) }

func (e *SceneEngine) Leave(layer string) { e.dispatch(EventMouseLeave, layer, nil) }

func (e *SceneEngine) SetCursor(cursor string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.Cursor = cursor
}

func (e *SceneEngine) FitBounds(b Bounds, padding int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.Camera.Bounds = &b
	e.scene.Camera.Padding = padding
	e.scene.Camera.Center = LngLat{(b[0][0] + b[1][0]) / 2, (b[0][1] + b[1][1]) / 2}
	e.scene.Camera.Fits++
}

func (e *SceneEngine) FlyTo(center LngLat, zoom float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.Camera.Center = center
	e.scene.Camera.Zoom = zoom
	e.scene.Camera.Bounds = nil
	e.scene.Camera.Padding = 0
	e.scene.Camera.Flights++
}

func (e *SceneEngine) Resize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene.Resizes++
}

// Snapshot returns a copy of the scene state.
func (e *SceneEngine) Snapshot() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.scene
	s.Hidden = append([]string(nil), e.scene.Hidden...)
	s.Layers = append([]LayerSpec(nil), e.scene.Layers...)
	s.Control = append([]Control(nil), e.scene.Control...)
	s.Sources = make(map[string]SourceSpec, len(e.scene.Sources))
	for k, v := range e.scene.Sources {
		s.Sources[k] = v
	}
	if e.scene.Camera.Bounds != nil {
		b := *e.scene.Camera.Bounds
		s.Camera.Bounds = &b
	}
	return s
}
