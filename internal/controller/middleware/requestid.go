package middleware

import (
	"net/http"

	"scrapedesk/internal/logger"

	"github.com/google/uuid"
)

// RequestIDHeader carries the id of a command request in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the context, reusing the caller's
// X-Request-ID when it is a valid UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
