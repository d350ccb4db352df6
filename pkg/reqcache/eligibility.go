package reqcache

import (
	"net/http"
	"strings"
)

// eligible implements the request-side eligibility pipeline: reject
// (pass-through) if the method, path, content type, auth state, or
// request Cache-Control disqualifies the request.
func eligible(r *http.Request, p Policy) bool {
	if _, ok := p.CacheableMethods[r.Method]; !ok {
		return false
	}
	if !pathIncluded(r.URL.Path, p.IncludedPaths, p.ExcludedPaths) {
		return false
	}
	if len(p.AllowedRequestContentTypes) > 0 {
		ct := baseContentType(r.Header.Get("Content-Type"))
		if ct != "" {
			if _, ok := p.AllowedRequestContentTypes[ct]; !ok {
				return false
			}
		}
	}
	if r.Header.Get("Authorization") != "" && !p.CacheAuthenticatedResponses {
		return false
	}
	if p.RespectRequestCacheControl && cacheControlForbids(r.Header.Get("Cache-Control")) {
		return false
	}
	return true
}

// responseCacheable implements the response-side check applied after the
// downstream handler completes.
func responseCacheable(status int, header http.Header, p Policy) bool {
	if _, ok := p.CacheableStatusCodes[status]; !ok {
		return false
	}
	if !p.AllowSetCookieResponses && header.Get("Set-Cookie") != "" {
		return false
	}
	if p.RespectResponseCacheControl && cacheControlForbids(header.Get("Cache-Control")) {
		return false
	}
	if len(p.AllowedResponseContentTypes) > 0 {
		ct := baseContentType(header.Get("Content-Type"))
		if ct != "" {
			if _, ok := p.AllowedResponseContentTypes[ct]; !ok {
				return false
			}
		}
	}
	return true
}

func cacheControlForbids(cacheControl string) bool {
	if cacheControl == "" {
		return false
	}
	lower := strings.ToLower(cacheControl)
	return strings.Contains(lower, "no-store") ||
		strings.Contains(lower, "no-cache") ||
		strings.Contains(lower, "private")
}

func baseContentType(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func pathIncluded(path string, included, excluded []string) bool {
	for _, prefix := range excluded {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if len(included) == 0 {
		return true
	}
	for _, prefix := range included {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
