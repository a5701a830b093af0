// Package testutil provides common test utilities for handler and pipeline tests.
package testutil

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRequest creates a simple HTTP request without a body.
func NewRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, target, nil)
}

// NewFormRequest creates a request with an urlencoded body, the shape of a
// token endpoint call.
func NewFormRequest(t *testing.T, method, target, form string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ReadBody reads the response body as a string.
func ReadBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err, "failed to read response body")
	return string(body)
}

// AssertStatus asserts the response status code matches expected.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertCORS asserts the credentialed CORS headers with the given allowed origin.
func AssertCORS(t *testing.T, rr *httptest.ResponseRecorder, allowOrigin string) {
	t.Helper()
	h := rr.Header()
	assert.Equal(t, allowOrigin, h.Get("Access-Control-Allow-Origin"), "unexpected allowed origin")
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, OPTIONS, POST", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "3600", h.Get("Access-Control-Max-Age"))
	assert.Contains(t, h.Values("Access-Control-Allow-Headers"), "Set-Cookie, Content-Type")
}

// CookieValue returns the decoded base64 value of the named response cookie.
// ok is false when the cookie is absent.
func CookieValue(t *testing.T, rr *httptest.ResponseRecorder, name string) (string, bool) {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name != name {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(c.Value)
		require.NoError(t, err, "cookie %q is not base64", name)
		return string(decoded), true
	}
	return "", false
}
