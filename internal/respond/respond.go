package respond

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the wrapper shape returned by every endpoint. Data is present
// only on success and Error only on failure; both are omitted, not null,
// when absent.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// New builds an envelope with the timestamp taken at construction time.
func New(success bool, message string, data any, errDetail string) Envelope {
	return Envelope{
		Success:   success,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
		Error:     errDetail,
	}
}

// JSON writes a success envelope with the given status and optional data.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, New(true, message, data, ""))
}

// Fail writes a failure envelope carrying only a human-readable message.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, New(false, message, nil, ""))
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
