package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse is the body of every non-2xx response. Timestamp is set for
// server-side failures only.
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
}

func WriteError(w http.ResponseWriter, code int, message string) {
	resp := ErrorResponse{Error: message}
	if code >= http.StatusInternalServerError {
		resp.Timestamp = Timestamp(time.Now())
	}
	WriteJSON(w, code, resp)
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Timestamp formats t as UTC ISO-8601 with milliseconds.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
