package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is prepended to every cache key.
const KeyPrefix = "manga"

// CacheKey represents a unique identifier for a cached proxy response.
type CacheKey struct {
	// Operation is the logical operation name (e.g., "manga_detail")
	Operation string

	// PathParams are the path parameters (e.g., {"id": "abc"})
	PathParams map[string]string

	// QueryParams are the normalized query parameters, defaults included
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: manga:operation:path1=val1:query1=val1:query2=val2
//
// Example:
//
//	manga:chapter_list:id=42:page=1:page_size=24:sort_by=chapter_number:sort_order=desc
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if op := strings.TrimSpace(k.Operation); op != "" {
		parts = append(parts, op)
	}

	parts = append(parts, sortedPairs(k.PathParams)...)

	if len(k.QueryParams) > 0 {
		flat := make(map[string]string, len(k.QueryParams))
		for key := range k.QueryParams {
			flat[key] = k.QueryParams.Get(key)
		}
		parts = append(parts, sortedPairs(flat)...)
	}

	return strings.Join(parts, ":")
}

// sortedPairs renders key=value pairs in lexicographic key order. Values are
// query-escaped so that ':' or '=' inside a value cannot collide with the
// separators.
func sortedPairs(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, url.QueryEscape(m[key])))
	}
	return pairs
}
