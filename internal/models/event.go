package models

import (
	"fmt"
	"net/url"
)

// Event feed columns.
const (
	ColEventName   = "イベント名"
	ColPeriod      = "開催期間"
	ColPlace       = "場所"
	ColTime        = "開始/終了時間"
	ColDescription = "説明文"
	ColOrganizer   = "主催者名"
	ColTags        = "タグ"
	ColSite        = "公式サイト"
	ColInstagram   = "Instagram"
	ColFacebook    = "Facebook"
	ColX           = "X"
)

// MaxEventImages is the number of image columns in the event feed.
const MaxEventImages = 6

// ImageColumn returns the header of the n-th (1-based) event image column.
func ImageColumn(n int) string {
	return fmt.Sprintf("画像URL%d", n)
}

var eventColumns = func() []string {
	cols := []string{
		ColEventName, ColPeriod, ColPlace, ColTime, ColDescription, ColOrganizer,
		ColTags, ColSite, ColInstagram, ColFacebook, ColX, ColLatitude, ColLongitude,
	}
	for n := 1; n <= MaxEventImages; n++ {
		cols = append(cols, ImageColumn(n))
	}
	return cols
}()

type Links struct {
	Site      string `json:"公式サイト,omitempty"`
	Instagram string `json:"Instagram,omitempty"`
	Facebook  string `json:"Facebook,omitempty"`
	X         string `json:"X,omitempty"`
}

type Event struct {
	Index       int      `json:"index"`
	Name        string   `json:"イベント名"`
	Period      string   `json:"開催期間"`
	Place       string   `json:"場所,omitempty"`
	Time        string   `json:"開始/終了時間,omitempty"`
	Description string   `json:"説明文,omitempty"`
	Organizer   string   `json:"主催者名,omitempty"`
	Tags        string   `json:"タグ,omitempty"`
	Images      []string `json:"images,omitempty"`
	Links       Links    `json:"links"`
	Latitude    string   `json:"緯度,omitempty"`
	Longitude   string   `json:"経度,omitempty"`

	Extra Attributes `json:"extra,omitempty"`
}

func NewEvent(index int, row map[string]string) Event {
	ev := Event{
		Index:       index,
		Name:        row[ColEventName],
		Period:      row[ColPeriod],
		Place:       row[ColPlace],
		Time:        row[ColTime],
		Description: row[ColDescription],
		Organizer:   row[ColOrganizer],
		Tags:        row[ColTags],
		Links: Links{
			Site:      row[ColSite],
			Instagram: row[ColInstagram],
			Facebook:  row[ColFacebook],
			X:         row[ColX],
		},
		Latitude:  row[ColLatitude],
		Longitude: row[ColLongitude],
		Extra:     extraAttributes(row, eventColumns),
	}
	for n := 1; n <= MaxEventImages; n++ {
		if u := row[ImageColumn(n)]; u != "" {
			ev.Images = append(ev.Images, u)
		}
	}
	return ev
}

func (e Event) Coordinates() (lat, lng string) {
	return e.Latitude, e.Longitude
}

// HasLocation reports whether both coordinate columns are filled in.
func (e Event) HasLocation() bool {
	return e.Latitude != "" && e.Longitude != ""
}

func (e Event) Properties() map[string]any {
	props := map[string]any{
		"index":      e.Index,
		ColEventName: e.Name,
		ColPeriod:    e.Period,
		ColName:      e.Name,
		ColLatitude:  e.Latitude,
		ColLongitude: e.Longitude,
	}
	setIfPresent(props, ColPlace, e.Place)
	setIfPresent(props, ColTime, e.Time)
	setIfPresent(props, ColDescription, e.Description)
	setIfPresent(props, ColOrganizer, e.Organizer)
	setIfPresent(props, ColTags, e.Tags)
	setIfPresent(props, ColSite, e.Links.Site)
	setIfPresent(props, ColInstagram, e.Links.Instagram)
	setIfPresent(props, ColFacebook, e.Links.Facebook)
	setIfPresent(props, ColX, e.Links.X)
	for i, img := range e.Images {
		props[ImageColumn(i+1)] = img
	}
	for k, v := range e.Extra {
		props[k] = v
	}
	return props
}

// PlaceSearchURL links the place name to a Google Maps search.
func (e Event) PlaceSearchURL() string {
	if e.Place == "" {
		return ""
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(e.Place)
}

// RouteURL links to Google Maps directions to the event location.
func (e Event) RouteURL() string {
	if !e.HasLocation() {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s", e.Latitude, e.Longitude)
}
