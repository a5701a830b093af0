package proxy

import (
	"net/http"
)

// CORS header values applied to every response.
const (
	corsAllowHeaders = "Set-Cookie, Content-Type"
	corsAllowMethods = "GET, OPTIONS, POST"
	corsMaxAge       = "3600"
)

// ApplyCORS sets the credentialed CORS contract on h. The allowed origin is
// the request origin, or defaultOrigin when the request had none.
// Access-Control-Allow-Headers is appended so an upstream value survives.
func ApplyCORS(h http.Header, origin, defaultOrigin string) {
	allowOrigin := origin
	if allowOrigin == "" {
		allowOrigin = defaultOrigin
	}

	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Allow-Origin", allowOrigin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Max-Age", corsMaxAge)
}
