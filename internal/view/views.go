package view

import (
	"fmt"

	"beermap/internal/mapsync"
	"beermap/internal/models"
	"beermap/pkg/geo"

	geojson "github.com/paulmach/go.geojson"
)

// EventMapContainer is the container of the embedded event detail map.
const EventMapContainer = "event-map"

// summaryLength is the number of runes of the description shown on an event card.
const summaryLength = 60

type Home struct {
	Query    string        `json:"query"`
	Shops    []models.Shop `json:"shops"`
	Selected *models.Shop  `json:"selected,omitempty"`
}

type List struct {
	Shops []models.Shop `json:"shops"`
}

// CategoryGroup lists the shops carrying one category tag.
type CategoryGroup struct {
	Tag   string        `json:"tag"`
	Shops []models.Shop `json:"shops"`
}

type About struct {
	FormURL string `json:"form_url,omitempty"`
}

// EventCard is one entry of the event list.
type EventCard struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Period  string `json:"period"`
	Place   string `json:"place,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type Events struct {
	Events  []EventCard `json:"events"`
	Message string      `json:"message,omitempty"`
}

// EventDetail is a single event with its links and, when it has a location,
// an embedded single-point map.
type EventDetail struct {
	Event    models.Event   `json:"event"`
	PlaceURL string         `json:"place_url,omitempty"`
	RouteURL string         `json:"route_url,omitempty"`
	Map      *mapsync.Scene `json:"map,omitempty"`
}

// Home returns the filtered shop list and the current selection.
func (a *App) Home() (Home, error) {
	items, err := a.readyShops()
	if err != nil {
		return Home{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	shops := a.filtered
	if shops == nil {
		shops = items
	}
	h := Home{Query: a.query, Shops: shops}
	if a.selected != nil {
		s := *a.selected
		h.Selected = &s
	}
	return h, nil
}

func (a *App) List() (List, error) {
	items, err := a.readyShops()
	if err != nil {
		return List{}, err
	}
	return List{Shops: items}, nil
}

// Categories groups shops by category tag, tags in order of first
// appearance. Shops without a category are left out.
func (a *App) Categories() ([]CategoryGroup, error) {
	items, err := a.readyShops()
	if err != nil {
		return nil, err
	}
	groups := []CategoryGroup{}
	pos := map[string]int{}
	for _, s := range items {
		for _, tag := range s.Tags() {
			i, ok := pos[tag]
			if !ok {
				i = len(groups)
				pos[tag] = i
				groups = append(groups, CategoryGroup{Tag: tag})
			}
			groups[i].Shops = append(groups[i].Shops, s)
		}
	}
	return groups, nil
}

// Images lists the shops that carry an image.
func (a *App) Images() ([]models.Shop, error) {
	items, err := a.readyShops()
	if err != nil {
		return nil, err
	}
	out := []models.Shop{}
	for _, s := range items {
		if s.Image != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func (a *App) About() About {
	return About{FormURL: a.formURL}
}

func (a *App) Events() (Events, error) {
	items, err := a.readyEvents()
	if err != nil {
		return Events{}, err
	}
	ev := Events{Events: make([]EventCard, 0, len(items))}
	for _, e := range items {
		ev.Events = append(ev.Events, EventCard{
			Index:   e.Index,
			Name:    e.Name,
			Period:  e.Period,
			Place:   e.Place,
			Summary: summarize(e.Description),
		})
	}
	if len(ev.Events) == 0 {
		ev.Message = EmptyEventsMessage
	}
	return ev, nil
}

func summarize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) > summaryLength {
		r = r[:summaryLength]
	}
	return string(r) + "..."
}

// EventDetail returns the event at feed position index.
func (a *App) EventDetail(index int) (EventDetail, error) {
	items, err := a.readyEvents()
	if err != nil {
		return EventDetail{}, err
	}
	for _, e := range items {
		if e.Index != index {
			continue
		}
		d := EventDetail{Event: e, PlaceURL: e.PlaceSearchURL(), RouteURL: e.RouteURL()}
		if e.HasLocation() {
			scene, err := a.eventMap(e)
			if err != nil {
				return EventDetail{}, err
			}
			d.Map = scene
		}
		return d, nil
	}
	return EventDetail{}, fmt.Errorf("%w: event %d", ErrNotFound, index)
}

// eventMap renders e on its own non-clustered map.
func (a *App) eventMap(e models.Event) (*mapsync.Scene, error) {
	factory := &mapsync.SceneFactory{BaseLayers: mapsync.BaseStyleLayers}
	ctl := mapsync.NewController(factory.New, a.log.Named("event-map"), mapsync.WithoutClustering())
	if err := ctl.Initialize(EventMapContainer); err != nil {
		return nil, err
	}
	defer ctl.Close()
	ctl.SetFeatures(geo.Project([]models.Event{e}))
	eng := factory.Last()
	eng.Load()
	scene := eng.Snapshot()
	return &scene, nil
}

// Map returns the state of the shared map.
func (a *App) Map() (mapsync.Scene, bool) {
	eng := a.scenes.Last()
	if eng == nil {
		return mapsync.Scene{}, false
	}
	return eng.Snapshot(), true
}

// Features returns the filtered shops as GeoJSON.
func (a *App) Features() (*geojson.FeatureCollection, error) {
	h, err := a.Home()
	if err != nil {
		return nil, err
	}
	return geo.Project(h.Shops), nil
}
