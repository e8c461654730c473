package models

import "strings"

// normalizeKey lower-trims a SKU or barcode for stable index lookups,
// matching the mapping engine's lower(trim(...)) comparison.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
