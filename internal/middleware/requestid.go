package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mockmate-backend/internal/logger"
)

// RequestID runs chi's request id middleware and copies the id into the
// logger context and the X-Request-ID response header.
func RequestID(next http.Handler) http.Handler {
	tag := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		w.Header().Set(chimiddleware.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
	return chimiddleware.RequestID(tag)
}
