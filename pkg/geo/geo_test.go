package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pt struct {
	name     string
	lat, lng string
}

func (p pt) Coordinates() (string, string) { return p.lat, p.lng }

func (p pt) Properties() map[string]any { return map[string]any{"name": p.name} }

func TestProject(t *testing.T) {
	items := []pt{
		{"A", "37.9", "138.5"},
		{"B", "38.0", "138.6"},
		{"bad", "x", "138.6"},
		{"out of range", "91", "138.6"},
		{"lng out of range", "37", "181"},
	}
	fc := Project(items)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, []float64{138.5, 37.9}, first.Geometry.Point)
	assert.Equal(t, "A", first.Properties["name"])
	assert.Equal(t, "B", fc.Features[1].Properties["name"])
}

func TestProject_Empty(t *testing.T) {
	fc := Project([]pt{})
	assert.Empty(t, fc.Features)
	_, ok := Extent(fc)
	assert.False(t, ok)
}

func TestExtent(t *testing.T) {
	cases := []struct {
		name  string
		items []pt
		want  Bounds
	}{
		{
			name:  "single point",
			items: []pt{{"A", "37.9", "138.5"}},
			want:  Bounds{West: 138.5, South: 37.9, East: 138.5, North: 37.9},
		},
		{
			name:  "several points",
			items: []pt{{"A", "37.9", "138.5"}, {"B", "38.2", "139.1"}, {"C", "37.1", "138.9"}},
			want:  Bounds{West: 138.5, South: 37.1, East: 139.1, North: 38.2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, ok := Extent(Project(tc.items))
			require.True(t, ok)
			assert.InDelta(t, tc.want.West, b.West, 1e-9)
			assert.InDelta(t, tc.want.South, b.South, 1e-9)
			assert.InDelta(t, tc.want.East, b.East, 1e-9)
			assert.InDelta(t, tc.want.North, b.North, 1e-9)
		})
	}
}

func TestLngLat(t *testing.T) {
	lng, lat, ok := LngLat(pt{lat: "37.9", lng: "138.5"})
	require.True(t, ok)
	assert.Equal(t, 138.5, lng)
	assert.Equal(t, 37.9, lat)

	_, _, ok = LngLat(pt{lat: "", lng: "138.5"})
	assert.False(t, ok)
	_, _, ok = LngLat(pt{lat: "NaN", lng: "138.5"})
	assert.False(t, ok)
}
