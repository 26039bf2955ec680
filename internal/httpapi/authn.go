package httpapi

import (
	"net/http"
	"strings"

	"golinks.org/internal/user"
)

// publicPaths are reachable without a session token.
var publicPaths = map[string]bool{
	"/healthz":     true,
	"/readyz":      true,
	"/metrics":     true,
	"/v1/info":     true,
	"/api/session": true,
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// withAuth resolves the session token into a live user record and attaches
// it to the request context. The token carries only the user id; admin and
// organization state is re-read on every request so revocations take effect
// immediately.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The transfer redirect only bounces the browser to the frontend;
		// the recipient authenticates there before redeeming.
		if publicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/_transfer/") ||
			r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="golinks"`)
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := a.sessions.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="golinks", error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		u, err := a.users.Find(r.Context(), userID)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unknown user")
			return
		}
		next.ServeHTTP(w, r.WithContext(user.ContextWith(r.Context(), u)))
	})
}

// principal returns the authenticated user, writing a 401 when absent.
func principal(w http.ResponseWriter, r *http.Request) (user.User, bool) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	}
	return u, ok
}
