package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireBearer wraps a handler with bearer-token authentication.
// An empty configured token disables the protected routes entirely rather
// than leaving them open.
func requireBearer(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			http.Error(w, "endpoint disabled: no auth_token configured", http.StatusForbidden)
			return
		}

		auth := r.Header.Get("Authorization")
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			// Websocket clients cannot set headers from browsers; accept
			// the token as a query parameter there.
			got = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
