// Package snapshot holds the ordering and change-detection rules applied to
// a freshly fetched record list before it replaces the cached one.
package snapshot

import (
	"sort"
	"strings"
	"time"

	"beermap/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05.999999999",
	"2006-1-2T15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
}

// ParseTimestamp reads the feed timestamp formats. Unparsable values report
// false.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByTimestamp returns a copy of items ordered newest first. Equal
// timestamps keep their relative order, and items with unparsable
// timestamps sort after every dated item.
func SortByTimestamp[T any](items []T, timestamp func(T) string) []T {
	type keyed struct {
		item T
		at   time.Time
		ok   bool
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		at, ok := ParseTimestamp(timestamp(it))
		ks[i] = keyed{item: it, at: at, ok: ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.at.After(b.at)
	})
	out := make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out
}

// SortShops orders shops by descending timestamp.
func SortShops(shops []models.Shop) []models.Shop {
	return SortByTimestamp(shops, func(s models.Shop) string { return s.Timestamp })
}

// Equal compares two snapshots structurally. Nil and empty collections
// compare equal so that a list read back from the cache matches a fresh one.
func Equal[T any](a, b []T) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

// Merge decides whether next replaces current. When the snapshots are equal
// current is returned unchanged.
func Merge[T any](current, next []T) ([]T, bool) {
	if Equal(current, next) {
		return current, false
	}
	return next, true
}
