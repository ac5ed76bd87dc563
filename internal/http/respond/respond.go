package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the failure body shared by all gateway endpoints.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}

// OK writes {"success": true}.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, Envelope{Success: true})
}

// Failure writes a structured failure with a caller-facing message.
func Failure(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Message: message})
}

// Fault writes a failure that also carries a generic error code for clients
// that distinguish faults from refusals.
func Fault(w http.ResponseWriter, status int, message, code string) {
	JSON(w, status, Envelope{Message: message, Error: code})
}
