package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
)

// SessionCookie holds the signed carrier token.
const SessionCookie = "practicum_session"

// Verifier resolves a carrier token to a verdict.
type Verifier interface {
	Verify(ctx context.Context, carrier string) authn.Verdict
}

// SetSessionCookie stores the carrier token for the browser.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Carrier returns the token from the session cookie, falling back to a
// bearer Authorization header.
func Carrier(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireSession verifies the carrier and populates AuthContext.
// Continue proceeds; Halt goes to /suspended; Logout clears the cookie and
// goes to /login. API requests get 403 and 401 JSON instead of redirects,
// and the 403 carries the suspended user's credentials.
// HTMX-aware: returns HX-Redirect header instead of 303 redirect for HTMX requests.
func RequireSession(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := v.Verify(r.Context(), Carrier(r))

			switch verdict.Action {
			case authn.Continue:
				ctx := auth.WithAuth(r.Context(), auth.AuthContext{
					Credentials: *verdict.Credentials,
					SessionID:   verdict.SessionID,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			case authn.Halt:
				if wantsJSON(r) {
					writeJSON(w, http.StatusForbidden, suspendedResponse{
						Error: "account suspended",
						User:  verdict.Credentials,
					})
					return
				}
				redirect(w, r, "/suspended")
			default:
				ClearSessionCookie(w)
				if wantsJSON(r) {
					writeError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				redirect(w, r, "/login")
			}
		})
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasRole(r.Context(), roles...) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type suspendedResponse struct {
	Error string             `json:"error"`
	User  *authn.Credentials `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
