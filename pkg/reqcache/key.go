package reqcache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix is prepended to every exact-mode cache key.
const keyPrefix = "http:req:"

// canonicalKeyMaterial concatenates the components the spec's exact-mode
// key derivation names, in fixed order, delimited by '|'. Shared by exact
// key derivation and the similarity subsystem's canonical payload, which
// uses the same ordering plus the canonicalized body.
func canonicalKeyMaterial(r *http.Request, varyByHeaders []string, lowercasePath bool, bodyHash string) string {
	var sb strings.Builder

	sb.WriteString(r.Method)
	sb.WriteByte('|')

	path := r.URL.Path
	if lowercasePath {
		path = strings.ToLower(path)
	}
	sb.WriteString(path)
	sb.WriteByte('|')

	sb.WriteString(sortedQuery(r.URL.Query()))
	sb.WriteByte('|')

	sb.WriteString(sortedVaryHeaders(r.Header, varyByHeaders))

	if bodyHash != "" {
		sb.WriteByte('|')
		sb.WriteString(bodyHash)
	}

	return sb.String()
}

// ExactKey derives the exact-mode cache key: SHA-256 of the canonical
// request material, prefixed with "http:req:".
func ExactKey(r *http.Request, varyByHeaders []string, lowercasePath bool, bodyHash string) string {
	material := canonicalKeyMaterial(r, varyByHeaders, lowercasePath, bodyHash)
	sum := sha256.Sum256([]byte(material))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func sortedQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		vals := append([]string(nil), values[k]...)
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	return sb.String()
}

func sortedVaryHeaders(header http.Header, varyByHeaders []string) string {
	names := append([]string(nil), varyByHeaders...)
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strings.ToLower(name))
		sb.WriteByte('=')
		sb.WriteString(strings.TrimSpace(header.Get(name)))
	}
	return sb.String()
}
