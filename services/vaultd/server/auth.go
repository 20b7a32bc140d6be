package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireAdmin enforces bearer authentication on admin routes.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	expected := []byte(s.cfg.BearerToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := parseBearerToken(r.Header.Get("Authorization"))
		if token == "" || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
