package reqcache

import "net/http"

// deniedHeaders are hop-by-hop or response-generation headers never
// persisted alongside a cached response body.
var deniedHeaders = map[string]struct{}{
	"Connection":        {},
	"Content-Length":    {},
	"Date":              {},
	"Keep-Alive":        {},
	"Server":            {},
	"Transfer-Encoding": {},
}

// filterStorableHeaders returns a copy of header with denylisted keys
// removed.
func filterStorableHeaders(header http.Header) http.Header {
	out := make(http.Header, len(header))
	for k, v := range header {
		if _, denied := deniedHeaders[http.CanonicalHeaderKey(k)]; denied {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
