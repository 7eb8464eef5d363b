// Package view is the top-level view controller. It owns the shop and event
// lists, the search filter and the selection, and keeps the map in step with
// them.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"beermap/internal/cache"
	"beermap/internal/keys"
	"beermap/internal/listing"
	"beermap/internal/mapsync"
	"beermap/internal/models"
	"beermap/internal/snapshot"
	"beermap/pkg/geo"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Text shown in place of a view.
const (
	LoadingMessage     = "読み込み中..."
	EmptyEventsMessage = "イベント情報がありません"
)

// MapContainer is the container the shared map is attached to.
const MapContainer = "map"

// ErrLoading is returned by views whose list has not finished loading.
var ErrLoading = errors.New(LoadingMessage)

// ErrNotFound is returned for an index that names no record.
var ErrNotFound = errors.New("view: no such record")

// UnavailableError is returned by views whose list failed to load.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// Feeds are the record sources the App loads.
type Feeds struct {
	Shops  listing.Fetcher[models.Shop]
	Events listing.Fetcher[models.Event]
}

type App struct {
	shops   *listing.Loader[models.Shop]
	events  *listing.Loader[models.Event]
	scenes  *mapsync.SceneFactory
	mapCtl  *mapsync.Controller
	formURL string
	log     *zap.Logger

	mu       sync.Mutex
	query    string
	filtered []models.Shop
	selected *models.Shop
}

type Option func(*appOptions)

type appOptions struct {
	notifier listing.Notifier
	formURL  string
}

// WithNotifier reports replaced snapshots of either list to n.
func WithNotifier(n listing.Notifier) Option {
	return func(o *appOptions) { o.notifier = n }
}

// WithFormURL sets the link of the add/edit listing form.
func WithFormURL(u string) Option {
	return func(o *appOptions) { o.formURL = u }
}

func New(feeds Feeds, store cache.Store, log *zap.Logger, opts ...Option) *App {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		scenes:  &mapsync.SceneFactory{BaseLayers: mapsync.BaseStyleLayers},
		formURL: o.formURL,
		log:     log,
	}
	a.mapCtl = mapsync.NewController(a.scenes.New, log.Named("map"), mapsync.WithSelect(a.selectFromMap))

	shopOpts := []listing.Option[models.Shop]{
		listing.WithOrder(snapshot.SortShops),
		listing.WithOnChange(a.shopsChanged),
	}
	var eventOpts []listing.Option[models.Event]
	if o.notifier != nil {
		shopOpts = append(shopOpts, listing.WithNotifier[models.Shop](o.notifier))
		eventOpts = append(eventOpts, listing.WithNotifier[models.Event](o.notifier))
	}
	a.shops = listing.New(keys.ShopList, store, feeds.Shops, log.Named("shops"), shopOpts...)
	a.events = listing.New(keys.EventList, store, feeds.Events, log.Named("events"), eventOpts...)
	return a
}

// Mount attaches the map and loads both lists. A list that fails to load is
// reported by its views; the returned error joins both failures.
func (a *App) Mount(ctx context.Context) error {
	if err := a.mapCtl.Initialize(MapContainer); err != nil {
		return err
	}
	if eng := a.scenes.Last(); eng != nil {
		eng.Load()
	}
	return a.Reload(ctx, "")
}

// Reload mounts the named list again, or both when feed is empty.
func (a *App) Reload(ctx context.Context, feed string) error {
	shops, events := feed == "" || feed == "shops", feed == "" || feed == "events"
	if !shops && !events {
		return fmt.Errorf("view: unknown feed %q", feed)
	}

	var g errgroup.Group
	var shopErr, eventErr error
	if shops {
		g.Go(func() error { shopErr = a.shops.Mount(ctx); return nil })
	}
	if events {
		g.Go(func() error { eventErr = a.events.Mount(ctx); return nil })
	}
	_ = g.Wait()
	return errors.Join(shopErr, eventErr)
}

// Teardown discards both lists, their cache entries and the selection.
func (a *App) Teardown(ctx context.Context) error {
	err := errors.Join(a.shops.Teardown(ctx), a.events.Teardown(ctx))
	a.shops.Wait()
	a.events.Wait()

	a.mu.Lock()
	a.query = ""
	a.filtered = nil
	a.selected = nil
	a.mapCtl.SetFeatures(nil)
	a.mapCtl.Select(nil)
	a.mu.Unlock()
	a.mapCtl.Close()
	return err
}

// Wait blocks until background refreshes of both lists have finished.
func (a *App) Wait() {
	a.shops.Wait()
	a.events.Wait()
}

func (a *App) shopsChanged(items []models.Shop) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filtered = filter(items, a.query)
	a.mapCtl.SetFeatures(geo.Project(a.filtered))
}

func filter(items []models.Shop, query string) []models.Shop {
	if query == "" {
		return items
	}
	out := make([]models.Shop, 0, len(items))
	for _, s := range items {
		if s.Matches(query) {
			out = append(out, s)
		}
	}
	return out
}

// Search filters the home view and the map by query. An empty query restores
// the full list.
func (a *App) Search(query string) (Home, error) {
	items, err := a.readyShops()
	if err != nil {
		return Home{}, err
	}
	a.mu.Lock()
	a.query = query
	a.filtered = filter(items, query)
	a.mapCtl.SetFeatures(geo.Project(a.filtered))
	a.mu.Unlock()
	return a.Home()
}

// SelectShop selects the shop at feed position index and flies the map to it.
func (a *App) SelectShop(index int) (models.Shop, error) {
	items, err := a.readyShops()
	if err != nil {
		return models.Shop{}, err
	}
	for _, s := range items {
		if s.Index == index {
			a.setSelected(&s)
			return s, nil
		}
	}
	return models.Shop{}, fmt.Errorf("%w: shop %d", ErrNotFound, index)
}

// ClearSelection closes the selected shop. The camera stays where it is.
func (a *App) ClearSelection() {
	a.setSelected(nil)
}

func (a *App) setSelected(s *models.Shop) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selected = s
	if s == nil {
		a.mapCtl.Select(nil)
		return
	}
	a.mapCtl.Select(*s)
}

func (a *App) selectFromMap(props map[string]any) {
	index, ok := propIndex(props)
	if !ok {
		a.log.Debug("clicked feature carries no index")
		return
	}
	if _, err := a.SelectShop(index); err != nil {
		a.log.Debug("clicked feature not selectable", zap.Error(err))
	}
}

func propIndex(props map[string]any) (int, bool) {
	switch v := props["index"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// OrientationChanged resizes the shared map.
func (a *App) OrientationChanged() {
	a.mapCtl.OrientationChanged()
}

func (a *App) readyShops() ([]models.Shop, error) {
	return ready(a.shops.Snapshot())
}

func (a *App) readyEvents() ([]models.Event, error) {
	return ready(a.events.Snapshot())
}

func ready[T any](s listing.Snapshot[T]) ([]T, error) {
	switch s.State {
	case listing.Ready:
		return s.Items, nil
	case listing.Failed:
		return nil, &UnavailableError{Message: s.Message}
	}
	return nil, ErrLoading
}

// ShopRefreshFailures counts swallowed background refresh failures of the
// shop list.
func (a *App) ShopRefreshFailures() int { return a.shops.RefreshFailures() }

func (a *App) EventRefreshFailures() int { return a.events.RefreshFailures() }
