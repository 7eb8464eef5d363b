package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beermap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const shopCSV = "スポット名,緯度,経度,タイムスタンプ,カテゴリ\n" +
	"A,37.9,138.5,2024-01-01,バー\n" +
	"B,38.0,138.6,2024-02-01,ブルワリー\n" +
	",38.1,138.7,2024-03-01,バー\n"

func TestValidCoordinate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"37", true},
		{"37.9", true},
		{"138.500001", true},
		{"-37.9", false},
		{"37.", false},
		{".9", false},
		{"37.9.1", false},
		{"37,9", false},
		{" 37.9", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidCoordinate(tc.in))
		})
	}
}

func TestShopDecoder(t *testing.T) {
	valid := map[string]string{models.ColName: "A", models.ColLatitude: "37.9", models.ColLongitude: "138.5"}
	cases := []struct {
		name string
		row  map[string]string
		want bool
	}{
		{"valid", valid, true},
		{"missing name", map[string]string{models.ColLatitude: "37.9", models.ColLongitude: "138.5"}, false},
		{"missing latitude", map[string]string{models.ColName: "A", models.ColLongitude: "138.5"}, false},
		{"missing longitude", map[string]string{models.ColName: "A", models.ColLatitude: "37.9"}, false},
		{"negative latitude", map[string]string{models.ColName: "A", models.ColLatitude: "-37.9", models.ColLongitude: "138.5"}, false},
		{"text longitude", map[string]string{models.ColName: "A", models.ColLatitude: "37.9", models.ColLongitude: "east"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := ShopDecoder(7, tc.row)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestEventDecoder(t *testing.T) {
	_, ok := EventDecoder(0, map[string]string{models.ColEventName: "Fest", models.ColPeriod: "5/1"})
	assert.True(t, ok)
	_, ok = EventDecoder(0, map[string]string{models.ColEventName: "Fest"})
	assert.False(t, ok)
	_, ok = EventDecoder(0, map[string]string{models.ColPeriod: "5/1"})
	assert.False(t, ok)
}

func TestParse_KeepsPositionalIndex(t *testing.T) {
	rows, err := Parse([]byte(shopCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	shops := Decode(rows, ShopDecoder)
	require.Len(t, shops, 2)
	assert.Equal(t, 0, shops[0].Index)
	assert.Equal(t, 1, shops[1].Index)
	assert.Equal(t, "バー", shops[0].Category)
}

func TestParse_Edges(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		rows, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
	t.Run("bom and short rows", func(t *testing.T) {
		rows, err := Parse([]byte("\xEF\xBB\xBFスポット名,緯度,経度\nA,37.9\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "A", rows[0][models.ColName])
		assert.NotContains(t, rows[0], models.ColLongitude)
	})
	t.Run("blank lines keep positions", func(t *testing.T) {
		rows, err := Parse([]byte("スポット名,緯度,経度\nA,37.9,138.5\n\n\"B\nC\",38.0,138.6\n\r\nD,38.1,138.7\n\n"))
		require.NoError(t, err)
		require.Len(t, rows, 5)
		shops := Decode(rows, ShopDecoder)
		require.Len(t, shops, 3)
		assert.Equal(t, []int{0, 2, 4}, []int{shops[0].Index, shops[1].Index, shops[2].Index})
		assert.Equal(t, "B\nC", shops[1].Name)
		assert.Equal(t, "D", shops[2].Name)
	})
	t.Run("broken quoting", func(t *testing.T) {
		_, err := Parse([]byte("a,b\n\"x\"y,1\n"))
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ParseMessage, pe.UserMessage())
		assert.Equal(t, 2, pe.Line)
	})
}

func TestSource_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shops.csv":
			_, _ = w.Write([]byte(shopCSV))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(time.Second, zaptest.NewLogger(t))

	t.Run("ok", func(t *testing.T) {
		shops, err := NewShopSource(client, srv.URL+"/shops.csv").Load(context.Background())
		require.NoError(t, err)
		require.Len(t, shops, 2)
		assert.Equal(t, "A", shops[0].Name)
		assert.Equal(t, "B", shops[1].Name)
	})

	t.Run("non-2xx", func(t *testing.T) {
		_, err := NewShopSource(client, srv.URL+"/missing.csv").Load(context.Background())
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusNotFound, fe.Status)
		assert.Equal(t, ShopFetchMessage, fe.UserMessage())
	})

	t.Run("network failure", func(t *testing.T) {
		_, err := NewEventSource(client, "http://127.0.0.1:1/events.csv").Load(context.Background())
		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, EventFetchMessage, fe.Message)
		assert.NotNil(t, errors.Unwrap(err))
	})
}
