package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/eights/internal/auth"
)

// extractTokenFromCookie returns the auth cookie value, or empty if not found.
func extractTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
