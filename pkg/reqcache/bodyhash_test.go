package reqcache

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRequestBody_SameBodySameHash(t *testing.T) {
	r1 := httptest.NewRequest(http.MethodPost, "/data", bytes.NewBufferString("hello"))
	r2 := httptest.NewRequest(http.MethodPost, "/data", bytes.NewBufferString("hello"))

	h1, err := hashRequestBody(r1, 1024)
	require.NoError(t, err)
	h2, err := hashRequestBody(r2, 1024)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashRequestBody_ResetsBodyForDownstream(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/data", bytes.NewBufferString("hello"))
	_, err := hashRequestBody(r, 1024)
	require.NoError(t, err)

	remaining, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(remaining))
}

func TestHashRequestBody_ExactlyAtCapSucceeds(t *testing.T) {
	body := strings.Repeat("a", 10)
	r := httptest.NewRequest(http.MethodPost, "/data", bytes.NewBufferString(body))
	_, err := hashRequestBody(r, 10)
	require.NoError(t, err)
}

func TestHashRequestBody_OneByteOverCapFails(t *testing.T) {
	body := strings.Repeat("a", 11)
	r := httptest.NewRequest(http.MethodPost, "/data", bytes.NewBufferString(body))
	_, err := hashRequestBody(r, 10)
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestHashRequestBody_NilBodyIsEmptyHash(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/data", nil)
	hash, err := hashRequestBody(r, 1024)
	require.NoError(t, err)
	require.Empty(t, hash)
}
