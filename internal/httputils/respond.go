// internal/httputils/respond.go
package httputils

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON envelope for error responses
type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response with the given status. The message
// is a generic, human-readable reason; callers must never put submitted
// credential material in it.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

// WriteUnauthorized writes the single observable authentication-failure
// response. Every internal failure kind maps here so the response carries no
// credential-guessing signal.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "authentication failed")
}

// WriteForbidden writes the authenticated-but-forbidden response
func WriteForbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "forbidden")
}
