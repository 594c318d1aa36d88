package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied request ids.
const maxRequestIDLen = 128

// RequestID assigns each request an id, reusing a caller-supplied
// X-Request-ID when present, and stores it in the request's audit info.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		info := audit.GetRequestInfo(r.Context())
		info.RequestID = id
		next.ServeHTTP(w, r.WithContext(audit.WithRequestInfo(r.Context(), info)))
	})
}
