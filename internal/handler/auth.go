package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/middleware"
)

const (
	msgRegistered   = "Account created. Please log in."
	msgEmailInUse   = "An account with that email already exists."
	msgMissing      = "Name, email and password are required."
	msgInvalidLogin = "Invalid email or password."
)

type AuthHandler struct {
	svc    *authn.Service
	logger *slog.Logger
}

func NewAuthHandler(svc *authn.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

type loginResponse struct {
	User      authn.Credentials `json:"user"`
	ExpiresAt string            `json:"expires_at"`
}

// Register accepts a form post (answered with redirects) or a JSON body
// (answered with JSON).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	jsonReq := isJSON(r)
	if jsonReq {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, authn.ErrEmailInUse):
		h.fail(w, r, jsonReq, http.StatusConflict, "/register", msgEmailInUse)
		return
	case errors.Is(err, authn.ErrInvalidInput):
		h.fail(w, r, jsonReq, http.StatusBadRequest, "/register", msgMissing)
		return
	default:
		h.logger.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if jsonReq {
		writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "role": u.Role})
		return
	}
	http.Redirect(w, r, "/login?message="+url.QueryEscape(msgRegistered), http.StatusSeeOther)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	jsonReq := isJSON(r)
	if jsonReq {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	issued, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, authn.ErrInvalidCredentials) {
		h.fail(w, r, jsonReq, http.StatusUnauthorized, "/login", msgInvalidLogin)
		return
	}
	if err != nil {
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	middleware.SetSessionCookie(w, r, issued.Token, issued.ExpiresAt)
	if jsonReq {
		writeJSON(w, http.StatusOK, loginResponse{
			User:      authn.CredentialsOf(issued.User),
			ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout revokes the session server-side and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.Carrier(r)); err != nil {
		h.logger.Error("logout", "error", err)
	}
	middleware.ClearSessionCookie(w)

	if isJSON(r) || strings.HasPrefix(r.URL.Path, "/api/") {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.Credentials(r.Context()))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := h.svc.ChangePassword(r.Context(), auth.UserID(r.Context()), req.Current, req.New)
	switch {
	case err == nil:
		// All sessions were revoked; the client signs in again.
		middleware.ClearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, authn.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "new password is required")
	case errors.Is(err, authn.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, "current password is incorrect")
	case errors.Is(err, authn.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Error("change password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change password")
	}
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), auth.UserID(r.Context())); err != nil {
		h.logger.Error("delete account", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, jsonReq bool, status int, page, msg string) {
	if jsonReq {
		writeError(w, status, msg)
		return
	}
	http.Redirect(w, r, page+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
