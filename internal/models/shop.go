package models

import (
	"strings"
)

// Shop feed columns.
const (
	ColName      = "スポット名"
	ColLatitude  = "緯度"
	ColLongitude = "経度"
	ColTimestamp = "タイムスタンプ"
	ColCategory  = "カテゴリ"
	ColImage     = "画像"
	ColHours     = "営業時間"
	ColAddress   = "住所"
	ColIntro     = "紹介文"
)

var shopColumns = []string{
	ColName, ColLatitude, ColLongitude, ColTimestamp,
	ColCategory, ColImage, ColHours, ColAddress, ColIntro,
}

// Attributes holds feed columns that have no dedicated field.
type Attributes map[string]string

// Shop is one row of the shop feed. Index is the position of the row in the
// parsed feed and only identifies the shop within a single snapshot.
type Shop struct {
	Index     int    `json:"index"`
	Name      string `json:"スポット名"`
	Latitude  string `json:"緯度"`
	Longitude string `json:"経度"`
	Timestamp string `json:"タイムスタンプ"`
	Category  string `json:"カテゴリ,omitempty"`
	Image     string `json:"画像,omitempty"`
	Hours     string `json:"営業時間,omitempty"`
	Address   string `json:"住所,omitempty"`
	Intro     string `json:"紹介文,omitempty"`

	Extra Attributes `json:"extra,omitempty"`
}

// NewShop maps a parsed CSV row onto a Shop. Columns without a dedicated
// field end up in Extra.
func NewShop(index int, row map[string]string) Shop {
	return Shop{
		Index:     index,
		Name:      row[ColName],
		Latitude:  row[ColLatitude],
		Longitude: row[ColLongitude],
		Timestamp: row[ColTimestamp],
		Category:  row[ColCategory],
		Image:     row[ColImage],
		Hours:     row[ColHours],
		Address:   row[ColAddress],
		Intro:     row[ColIntro],
		Extra:     extraAttributes(row, shopColumns),
	}
}

// Coordinates returns the raw latitude and longitude strings.
func (s Shop) Coordinates() (lat, lng string) {
	return s.Latitude, s.Longitude
}

// Properties flattens the shop into feed-column keyed properties.
func (s Shop) Properties() map[string]any {
	props := map[string]any{
		"index":      s.Index,
		ColName:      s.Name,
		ColLatitude:  s.Latitude,
		ColLongitude: s.Longitude,
		ColTimestamp: s.Timestamp,
	}
	setIfPresent(props, ColCategory, s.Category)
	setIfPresent(props, ColImage, s.Image)
	setIfPresent(props, ColHours, s.Hours)
	setIfPresent(props, ColAddress, s.Address)
	setIfPresent(props, ColIntro, s.Intro)
	for k, v := range s.Extra {
		props[k] = v
	}
	return props
}

// Tags splits the category column into individual tags.
func (s Shop) Tags() []string {
	return splitTags(s.Category)
}

// Matches reports whether query occurs in any searchable field, ignoring case.
func (s Shop) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{s.Name, s.Category, s.Address, s.Intro} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func extraAttributes(row map[string]string, known []string) Attributes {
	var extra Attributes
	for k, v := range row {
		if k == "" || contains(known, k) {
			continue
		}
		if extra == nil {
			extra = make(Attributes)
		}
		extra[k] = v
	}
	return extra
}

func setIfPresent(props map[string]any, key, value string) {
	if value != "" {
		props[key] = value
	}
}

func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、' || r == '，'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
