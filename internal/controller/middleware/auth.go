// Package middleware contains HTTP middleware for the scraperd command gateway.
package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"scrapedesk/internal/auth"
	"scrapedesk/pkg/api"
)

// Auth rejects requests that do not carry "Bearer <token>". An empty token
// disables the check.
func Auth(token string) func(http.Handler) http.Handler {
	wantHash := auth.HashKey(token)

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok || !auth.Verify(presented, wantHash) {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
