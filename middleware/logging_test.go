package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingAssignsRequestID(t *testing.T) {
	var seen string
	h := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, seen)
	assert.Len(t, seen, 8)
	// The same id is echoed to the client
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDFromWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	assert.Empty(t, RequestIDFrom(r))
}
