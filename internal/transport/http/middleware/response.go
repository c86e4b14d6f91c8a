package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the standard {"error","kind"} body with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	kind := "internal"
	switch status {
	case http.StatusUnauthorized:
		kind = "unauthorized"
	case http.StatusTooManyRequests:
		kind = "rate_limited"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}
