package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hzrede/studio/internal/auth"
	"github.com/hzrede/studio/internal/store"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "hz_session"

// LoadSession resolves the session cookie into a request-scoped session,
// creating an anonymous session (and setting the cookie) when the browser
// has none. Handlers can then rely on a session always being present.
func LoadSession(sessions *store.SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess, err := sessions.GetByToken(cookie.Value)
				if err != nil {
					logger.Error("load session", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				if sess != nil {
					next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
					return
				}
			}

			sess, err := sessions.Create()
			if err != nil {
				logger.Error("create session", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sess.Token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  sess.ExpiresAt,
			})
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequireAdmin rejects requests whose session lacks the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
