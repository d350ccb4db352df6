package reqcache

import "time"

// Mode selects the key-derivation strategy for the request-cache workflow.
type Mode string

const (
	ModeExact      Mode = "Exact"
	ModeSimilarity Mode = "Similarity"
)

// ResponseHeaderOptions controls which metadata headers the middleware
// emits on a rendered response.
type ResponseHeaderOptions struct {
	Enabled           bool
	CacheStatusHeader string
	CacheStaleHeader  string
	SimilarityHeader  string
	CacheKeyHeader    string
	IncludeCacheKey   bool
}

// DefaultResponseHeaderOptions returns the exact header names spec'd for
// the workflow.
func DefaultResponseHeaderOptions() ResponseHeaderOptions {
	return ResponseHeaderOptions{
		Enabled:           true,
		CacheStatusHeader: "X-Cachify-Cache",
		CacheStaleHeader:  "X-Cachify-Cache-Stale",
		SimilarityHeader:  "X-Cachify-Cache-Similarity",
		CacheKeyHeader:    "X-Cachify-Cache-Key",
	}
}

// Policy is the resolved configuration for one endpoint's request-cache
// behavior: the merge of global options and any per-endpoint override.
type Policy struct {
	Mode Mode

	DefaultDuration time.Duration

	CacheableMethods     map[string]struct{}
	CacheableStatusCodes map[int]struct{}

	AllowedRequestContentTypes  map[string]struct{}
	AllowedResponseContentTypes map[string]struct{}

	IncludedPaths []string
	ExcludedPaths []string

	VaryByHeaders []string
	IncludeBody   bool

	MaxRequestBodySizeBytes  int64
	MaxResponseBodySizeBytes int64

	CacheAuthenticatedResponses bool
	RespectRequestCacheControl  bool
	RespectResponseCacheControl bool
	AllowSetCookieResponses     bool
	EnableResponseBuffering     bool

	ResponseHeaders ResponseHeaderOptions
}

// DefaultPolicy returns conservative request-cache defaults: exact mode,
// GET/HEAD only, 200/203/300/301/302/404/410 cacheable, JSON content
// types, no authenticated caching, request/response Cache-Control
// respected, Set-Cookie responses excluded.
func DefaultPolicy() Policy {
	return Policy{
		Mode:            ModeExact,
		DefaultDuration: 5 * time.Minute,
		CacheableMethods: map[string]struct{}{
			"GET": {}, "HEAD": {},
		},
		CacheableStatusCodes: map[int]struct{}{
			200: {}, 203: {}, 300: {}, 301: {}, 302: {}, 404: {}, 410: {},
		},
		AllowedRequestContentTypes: map[string]struct{}{
			"application/json": {},
		},
		AllowedResponseContentTypes: map[string]struct{}{
			"application/json": {},
		},
		MaxRequestBodySizeBytes:     1 << 20, // 1 MiB
		MaxResponseBodySizeBytes:    4 << 20, // 4 MiB
		RespectRequestCacheControl:  true,
		RespectResponseCacheControl: true,
		EnableResponseBuffering:     true,
		ResponseHeaders:             DefaultResponseHeaderOptions(),
	}
}

// Clone returns a deep-enough copy of p so a per-endpoint override can
// mutate its maps and slices without affecting the global policy.
func (p Policy) Clone() Policy {
	clone := p

	clone.CacheableMethods = cloneStringSet(p.CacheableMethods)
	clone.CacheableStatusCodes = cloneIntSet(p.CacheableStatusCodes)
	clone.AllowedRequestContentTypes = cloneStringSet(p.AllowedRequestContentTypes)
	clone.AllowedResponseContentTypes = cloneStringSet(p.AllowedResponseContentTypes)

	clone.IncludedPaths = append([]string(nil), p.IncludedPaths...)
	clone.ExcludedPaths = append([]string(nil), p.ExcludedPaths...)
	clone.VaryByHeaders = append([]string(nil), p.VaryByHeaders...)

	return clone
}

func cloneStringSet(m map[string]struct{}) map[string]struct{} {
	if m == nil {
		return nil
	}
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func cloneIntSet(m map[int]struct{}) map[int]struct{} {
	if m == nil {
		return nil
	}
	out := make(map[int]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
