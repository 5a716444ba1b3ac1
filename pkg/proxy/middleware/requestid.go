package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cd-Crypton/anistream/pkg/telemetry/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied IDs before they reach logs.
const maxRequestIDLength = 128

// RequestIDMiddleware tags each request with an ID: the client's
// X-Request-ID when present and sane, otherwise a new UUID. The ID is put
// on the context for logging and echoed in the response header.
//
// The ID is never forwarded upstream; upstream requests carry a fixed
// header set.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

// GetRequestID returns the request ID on r's context.
func GetRequestID(r *http.Request) string {
	return logging.GetRequestID(r.Context())
}
