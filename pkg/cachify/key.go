package cachify

import "strings"

// metaSuffix is appended to a user key to derive its metadata key. Callers
// must not use this suffix for their own keys.
const metaSuffix = ":meta"

// buildKey joins an optional prefix, an optional region, and the caller's
// key into the opaque cache key string. Keys are compared byte-exact.
func buildKey(prefix, region, key string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if region != "" {
		parts = append(parts, region)
	}
	parts = append(parts, key)
	return strings.Join(parts, ":")
}

// metaKey derives the metadata key for a given cache key.
func metaKey(key string) string {
	return key + metaSuffix
}
