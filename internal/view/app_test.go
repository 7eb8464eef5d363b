package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"beermap/internal/cache"
	"beermap/internal/feed"
	"beermap/internal/keys"
	"beermap/internal/mapsync"
	"beermap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticFeed[T any] struct {
	items []T
	err   error
}

func (f staticFeed[T]) Load(context.Context) ([]T, error) {
	return f.items, f.err
}

var (
	shops = []models.Shop{
		{Index: 0, Name: "Alpha Taproom", Latitude: "37.9", Longitude: "138.5", Timestamp: "2024-01-01", Category: "ブルワリー、バー", Address: "新潟市"},
		{Index: 2, Name: "Beer Stand", Latitude: "38.0", Longitude: "138.6", Timestamp: "2024-02-01", Category: "バー", Image: "https://example.com/b.jpg"},
		{Index: 3, Name: "Cask", Latitude: "38.1", Longitude: "138.7", Timestamp: "2023-12-01", Intro: "IPA on tap"},
	}
	events = []models.Event{
		{Index: 0, Name: "Beer Fes", Period: "2024/5/1-5/3", Place: "朱鷺メッセ", Description: strings.Repeat("あ", 80), Latitude: "37.92", Longitude: "139.05"},
		{Index: 1, Name: "Tasting", Period: "2024/6/1"},
	}
)

func newApp(t *testing.T, f Feeds, opts ...Option) (*App, cache.Store) {
	t.Helper()
	store := cache.NewMemory()
	if f.Shops == nil {
		f.Shops = staticFeed[models.Shop]{items: shops}
	}
	if f.Events == nil {
		f.Events = staticFeed[models.Event]{items: events}
	}
	return New(f, store, zaptest.NewLogger(t), opts...), store
}

func mounted(t *testing.T, f Feeds, opts ...Option) (*App, cache.Store) {
	t.Helper()
	a, store := newApp(t, f, opts...)
	require.NoError(t, a.Mount(context.Background()))
	a.Wait()
	return a, store
}

func names(items []models.Shop) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.Name)
	}
	return out
}

func TestViews_BeforeMount(t *testing.T) {
	a, _ := newApp(t, Feeds{})
	_, err := a.Home()
	assert.ErrorIs(t, err, ErrLoading)
	_, err = a.Events()
	assert.ErrorIs(t, err, ErrLoading)
	_, ok := a.Map()
	assert.False(t, ok)
}

func TestMount_HomeAndMap(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	h, err := a.Home()
	require.NoError(t, err)
	assert.Equal(t, []string{"Beer Stand", "Alpha Taproom", "Cask"}, names(h.Shops))
	assert.Nil(t, h.Selected)

	scene, ok := a.Map()
	require.True(t, ok)
	assert.True(t, scene.Loaded)
	src := scene.Sources[mapsync.SourceID]
	assert.True(t, src.Cluster)
	assert.Len(t, src.Data.Features, 3)
	assert.Equal(t, 1, scene.Camera.Fits)
}

func TestMount_ShopFeedFails(t *testing.T) {
	fetchErr := &feed.FetchError{Status: 500, Message: feed.ShopFetchMessage}
	a, _ := newApp(t, Feeds{Shops: staticFeed[models.Shop]{err: fetchErr}})
	err := a.Mount(context.Background())
	assert.ErrorIs(t, err, fetchErr)

	_, err = a.Home()
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, feed.ShopFetchMessage, ue.Message)

	ev, err := a.Events()
	require.NoError(t, err)
	assert.Len(t, ev.Events, 2)
}

func TestSearch(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	tests := []struct {
		query string
		want  []string
	}{
		{"beer", []string{"Beer Stand"}},
		{"ブルワリー", []string{"Alpha Taproom"}},
		{"新潟", []string{"Alpha Taproom"}},
		{"ipa", []string{"Cask"}},
		{"stout", []string{}},
		{"", []string{"Beer Stand", "Alpha Taproom", "Cask"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h, err := a.Search(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.query, h.Query)
			assert.Equal(t, tt.want, names(h.Shops))

			scene, _ := a.Map()
			assert.Len(t, scene.Sources[mapsync.SourceID].Data.Features, len(tt.want))

			fc, err := a.Features()
			require.NoError(t, err)
			assert.Len(t, fc.Features, len(tt.want))
		})
	}
}

func TestSearch_SurvivesRefresh(t *testing.T) {
	a, _ := mounted(t, Feeds{})
	_, err := a.Search("cask")
	require.NoError(t, err)

	a.shopsChanged(shops[:2])
	h, err := a.Home()
	require.NoError(t, err)
	assert.Empty(t, h.Shops)
}

func TestSearch_MapMatchesHomeUnderRefresh(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := a.Search([]string{"beer", "", "cask"}[i%3])
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			a.shopsChanged(shops)
		}()
	}
	wg.Wait()

	h, err := a.Home()
	require.NoError(t, err)
	scene, ok := a.Map()
	require.True(t, ok)
	assert.Len(t, scene.Sources[mapsync.SourceID].Data.Features, len(h.Shops))
}

func TestSelection(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	s, err := a.SelectShop(2)
	require.NoError(t, err)
	assert.Equal(t, "Beer Stand", s.Name)

	h, err := a.Home()
	require.NoError(t, err)
	require.NotNil(t, h.Selected)
	assert.Equal(t, "Beer Stand", h.Selected.Name)

	scene, _ := a.Map()
	assert.Equal(t, mapsync.LngLat{138.6, 38.0}, scene.Camera.Center)
	assert.Equal(t, float64(mapsync.SelectZoom), scene.Camera.Zoom)

	a.ClearSelection()
	h, _ = a.Home()
	assert.Nil(t, h.Selected)
	after, _ := a.Map()
	assert.Equal(t, scene.Camera.Flights, after.Camera.Flights)

	_, err = a.SelectShop(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapClickSelectsShop(t *testing.T) {
	a, _ := mounted(t, Feeds{})
	eng := a.scenes.Last()

	eng.Click(mapsync.PointLayer, map[string]any{"cluster": true, "point_count": 2})
	h, _ := a.Home()
	assert.Nil(t, h.Selected)

	eng.Click(mapsync.SymbolLayer, shops[2].Properties())
	h, _ = a.Home()
	require.NotNil(t, h.Selected)
	assert.Equal(t, "Cask", h.Selected.Name)

	// Properties decoded from JSON carry numbers as float64.
	eng.Click(mapsync.PointLayer, map[string]any{"index": float64(0)})
	h, _ = a.Home()
	require.NotNil(t, h.Selected)
	assert.Equal(t, "Alpha Taproom", h.Selected.Name)
}

func TestCategoriesAndImages(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	groups, err := a.Categories()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "バー", groups[0].Tag)
	assert.Equal(t, []string{"Beer Stand", "Alpha Taproom"}, names(groups[0].Shops))
	assert.Equal(t, "ブルワリー", groups[1].Tag)
	assert.Equal(t, []string{"Alpha Taproom"}, names(groups[1].Shops))

	imgs, err := a.Images()
	require.NoError(t, err)
	assert.Equal(t, []string{"Beer Stand"}, names(imgs))
}

func TestAbout(t *testing.T) {
	a, _ := newApp(t, Feeds{}, WithFormURL("https://forms.example.com/add"))
	assert.Equal(t, "https://forms.example.com/add", a.About().FormURL)
}

func TestEvents(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	ev, err := a.Events()
	require.NoError(t, err)
	require.Len(t, ev.Events, 2)
	assert.Empty(t, ev.Message)
	assert.Equal(t, strings.Repeat("あ", 60)+"...", ev.Events[0].Summary)
	assert.Empty(t, ev.Events[1].Summary)

	empty, _ := mounted(t, Feeds{Events: staticFeed[models.Event]{items: []models.Event{}}})
	ev, err = empty.Events()
	require.NoError(t, err)
	assert.Empty(t, ev.Events)
	assert.Equal(t, EmptyEventsMessage, ev.Message)
}

func TestEventDetail(t *testing.T) {
	a, _ := mounted(t, Feeds{})

	d, err := a.EventDetail(0)
	require.NoError(t, err)
	assert.Equal(t, "Beer Fes", d.Event.Name)
	assert.Contains(t, d.PlaceURL, "https://www.google.com/maps/search/?api=1&query=")
	assert.Equal(t, "https://www.google.com/maps/dir/?api=1&destination=37.92,139.05", d.RouteURL)
	require.NotNil(t, d.Map)
	assert.Equal(t, EventMapContainer, d.Map.Options.Container)
	src := d.Map.Sources[mapsync.SourceID]
	assert.False(t, src.Cluster)
	require.Len(t, src.Data.Features, 1)
	assert.Equal(t, "Beer Fes", src.Data.Features[0].Properties[models.ColName])

	d, err = a.EventDetail(1)
	require.NoError(t, err)
	assert.Nil(t, d.Map)
	assert.Empty(t, d.RouteURL)
	assert.Empty(t, d.PlaceURL)

	_, err = a.EventDetail(9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTeardown(t *testing.T) {
	a, store := mounted(t, Feeds{})
	ctx := context.Background()
	_, err := a.SelectShop(0)
	require.NoError(t, err)

	for _, k := range keys.All {
		_, err := store.Get(ctx, k)
		require.NoError(t, err, k)
	}

	require.NoError(t, a.Teardown(ctx))
	for _, k := range keys.All {
		_, err := store.Get(ctx, k)
		assert.ErrorIs(t, err, cache.ErrMiss, k)
	}
	_, err = a.Home()
	assert.ErrorIs(t, err, ErrLoading)

	require.NoError(t, a.Mount(ctx))
	h, err := a.Home()
	require.NoError(t, err)
	assert.Nil(t, h.Selected)
	assert.Equal(t, 2, a.scenes.Created())
}

func TestReload(t *testing.T) {
	a, _ := mounted(t, Feeds{})
	require.NoError(t, a.Reload(context.Background(), "shops"))
	require.NoError(t, a.Reload(context.Background(), "events"))
	a.Wait()
	err := a.Reload(context.Background(), "beer")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLoading))
}

type countingNotifier struct{ keys []string }

func (n *countingNotifier) SnapshotChanged(_ context.Context, key string, _ int) error {
	n.keys = append(n.keys, key)
	return nil
}

func TestNotifierOnRefresh(t *testing.T) {
	n := &countingNotifier{}
	a, store := newApp(t, Feeds{}, WithNotifier(n))
	ctx := context.Background()
	require.NoError(t, cache.Save(ctx, store, keys.ShopList, shops[:1]))

	require.NoError(t, a.Mount(ctx))
	a.Wait()
	assert.Equal(t, []string{keys.ShopList}, n.keys)

	h, err := a.Home()
	require.NoError(t, err)
	assert.Len(t, h.Shops, 3)
}
