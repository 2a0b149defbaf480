package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/store"
)

type AdminHandler struct {
	svc       *authn.Service
	userStore *store.UserStore
	logger    *slog.Logger
}

func NewAdminHandler(svc *authn.Service, us *store.UserStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, userStore: us, logger: logger}
}

type statusRequest struct {
	Status string `json:"status"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userStore.List(r.Context())
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err = h.svc.SetStatus(r.Context(), auth.Credentials(r.Context()), id, req.Status)
	h.respond(w, err, "status must be active or suspended")
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err = h.svc.SetRole(r.Context(), auth.Credentials(r.Context()), id, req.Role)
	h.respond(w, err, "role must be admin or user")
}

func (h *AdminHandler) respond(w http.ResponseWriter, err error, invalidMsg string) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, authn.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, invalidMsg)
	case errors.Is(err, authn.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, authn.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.logger.Error("admin update", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
	}
}
