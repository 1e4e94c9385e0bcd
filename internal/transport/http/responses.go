package httptransport

import (
	"encoding/json"
	"io"
	"net/http"
)

// Error codes used in the JSON error envelope.
const (
	codeInvalidInput  = "invalid_input"
	codeNotSubscribed = "not_subscribed"
	codeInternal      = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError keeps a consistent JSON error envelope across handlers.
func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
