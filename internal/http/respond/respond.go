// Package respond holds the JSON response helpers shared by the admin handlers.
package respond

import (
	"encoding/json"
	"net/http"
	"strings"
)

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, msg string, status int) {
	JSON(w, status, map[string]string{"error": msg})
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// Digits strips everything but 0-9 from a phone-like contact reference.
func Digits(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
