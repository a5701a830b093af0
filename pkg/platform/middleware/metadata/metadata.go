package metadata

import (
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"riskproxy/pkg/requestcontext"
)

// clientIPHeaders are consulted in order. The edge terminates the client
// connection, so RemoteAddr is never the end user and is not used.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ClientMetadata resolves the end-user IP, User-Agent, request ID and request
// time once and stores them on the context for the pipeline and its
// collaborators. Mount it after chi's RequestID middleware.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		ctx = requestcontext.WithTime(ctx, time.Now())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the end-user IP from forwarding headers.
// Returns "" when none of them carries a parseable address.
func ClientIPFromRequest(r *http.Request) string {
	for _, name := range clientIPHeaders {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
		if first, _, found := strings.Cut(value, ","); found {
			value = first
		}
		value = strings.TrimSpace(value)
		if net.ParseIP(value) != nil {
			return value
		}
	}
	return ""
}
