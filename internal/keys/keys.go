package keys

import (
	"fmt"
	"strings"
)

// Session cache keys.
const (
	ShopList  = "shopListCache"
	EventList = "eventListCache"
)

// All lists every session cache key, in teardown order.
var All = []string{ShopList, EventList}

// sanitizeKey replaces spaces with hyphens and strips path separators.
func sanitizeKey(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ReplaceAll(s, "/", "-")
}

// Object returns the object-store key that holds the cache entry key.
func Object(key string) string {
	return fmt.Sprintf("session/%s.json", sanitizeKey(key))
}
