package reqcache

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEligible_MethodNotCacheable(t *testing.T) {
	p := DefaultPolicy()
	r := httptest.NewRequest(http.MethodPost, "/data", nil)
	require.False(t, eligible(r, p))
}

func TestEligible_ExcludedPath(t *testing.T) {
	p := DefaultPolicy()
	p.ExcludedPaths = []string{"/admin"}
	r := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	require.False(t, eligible(r, p))
}

func TestEligible_IncludedPathAllowsOnlyMatches(t *testing.T) {
	p := DefaultPolicy()
	p.IncludedPaths = []string{"/api"}
	require.True(t, eligible(httptest.NewRequest(http.MethodGet, "/api/users", nil), p))
	require.False(t, eligible(httptest.NewRequest(http.MethodGet, "/other", nil), p))
}

func TestEligible_AuthorizationDisqualifiesByDefault(t *testing.T) {
	p := DefaultPolicy()
	r := httptest.NewRequest(http.MethodGet, "/data", nil)
	r.Header.Set("Authorization", "Bearer token")
	require.False(t, eligible(r, p))
}

func TestEligible_AuthorizationAllowedWhenConfigured(t *testing.T) {
	p := DefaultPolicy()
	p.CacheAuthenticatedResponses = true
	r := httptest.NewRequest(http.MethodGet, "/data", nil)
	r.Header.Set("Authorization", "Bearer token")
	require.True(t, eligible(r, p))
}

func TestEligible_RequestCacheControlNoStore(t *testing.T) {
	p := DefaultPolicy()
	r := httptest.NewRequest(http.MethodGet, "/data", nil)
	r.Header.Set("Cache-Control", "no-store")
	require.False(t, eligible(r, p))
}

func TestResponseCacheable_StatusNotInAllowList(t *testing.T) {
	p := DefaultPolicy()
	require.False(t, responseCacheable(500, http.Header{}, p))
}

func TestResponseCacheable_SetCookieDisqualifiesByDefault(t *testing.T) {
	p := DefaultPolicy()
	h := http.Header{}
	h.Set("Set-Cookie", "session=abc")
	require.False(t, responseCacheable(200, h, p))
}

func TestResponseCacheable_ResponseCacheControlNoCache(t *testing.T) {
	p := DefaultPolicy()
	h := http.Header{}
	h.Set("Cache-Control", "no-cache")
	require.False(t, responseCacheable(200, h, p))
}

func TestResponseCacheable_AllowedContentType(t *testing.T) {
	p := DefaultPolicy()
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	require.True(t, responseCacheable(200, h, p))
}
