// Package httpx provides the JSON envelope shared by every API response.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shipdesk/shipdesk/internal/shared"
)

// maxBodyBytes bounds request bodies, bulk imports included.
const maxBodyBytes = 8 << 20

// Envelope is the response body shape: {status, message?, <key>?}.
type Envelope map[string]any

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends {status:true} with an optional message and a payload under key.
func Success(w http.ResponseWriter, status int, message, key string, data any) {
	body := Envelope{"status": true}
	if message != "" {
		body["message"] = message
	}
	if key != "" {
		body[key] = data
	}
	JSON(w, status, body)
}

// Fail sends {status:false, message}.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{"status": false, "message": message})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return shared.Validation("decode body", "Request body is too large")
		case errors.Is(err, io.EOF):
			return shared.Validation("decode body", "Request body is required")
		}
		return shared.Validation("decode body", "Invalid request body")
	}
	return nil
}
