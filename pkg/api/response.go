package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Response helpers for common HTTP response patterns

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes an error response with the given status code and message
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]any{
		"error":  message,
		"status": "error",
	})
}

// writeNotFoundResponse writes a 404 Not Found response
func writeNotFoundResponse(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusNotFound, message)
}

// writeInternalServerErrorResponse writes a 500 Internal Server Error response
func writeInternalServerErrorResponse(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal Server Error"
	}
	writeErrorResponse(w, http.StatusInternalServerError, message)
}

// parseIntParam extracts a positive integer query parameter, returning the
// default when absent or invalid
func parseIntParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}
