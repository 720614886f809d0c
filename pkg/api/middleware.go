package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/daycarealert/daycarealert-go/pkg/logging"
)

// loggingMiddleware logs HTTP requests and responses
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.logger.Info("HTTP request",
			logging.Component("http"),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rw.statusCode),
			logging.Float("duration_ms", duration.Seconds()*1000))
	})
}

// errorRecoveryMiddleware recovers from panics and logs errors
func (s *Server) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					fmt.Errorf("panic: %v", err),
					logging.Component("http"),
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path))
				writeInternalServerErrorResponse(w, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds permissive CORS headers for the public read API
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
