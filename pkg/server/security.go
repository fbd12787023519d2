package server

import (
	"net/http"
)

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME-sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Nothing here is meant to be framed
		w.Header().Set("X-Frame-Options", "DENY")

		// Status can change every update
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
