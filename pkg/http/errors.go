package http

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WritePlainError writes a short text/plain page. Used where the browser
// hits a limit before any page can be rendered.
func WritePlainError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(message + "\n"))
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WritePlainError(w, http.StatusTooManyRequests, message)
}
