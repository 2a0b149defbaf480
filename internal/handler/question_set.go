package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/store"
)

const maxTitleLen = 200

type SetHandler struct {
	setStore *store.SetStore
	logger   *slog.Logger
}

func NewSetHandler(ss *store.SetStore, logger *slog.Logger) *SetHandler {
	return &SetHandler{setStore: ss, logger: logger}
}

type setRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (req *setRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if len(req.Title) > maxTitleLen {
		return "title is too long"
	}
	return ""
}

func (h *SetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	set, err := h.setStore.Create(r.Context(), req.Title, req.Description, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("create set", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create set")
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

// List serves every set, or only the caller's with ?mine=true.
func (h *SetHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		sets []model.QuestionSet
		err  error
	)
	if r.URL.Query().Get("mine") == "true" {
		sets, err = h.setStore.ListByAuthor(r.Context(), auth.UserID(r.Context()))
	} else {
		sets, err = h.setStore.List(r.Context())
	}
	if err != nil {
		h.logger.Error("list sets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sets")
		return
	}
	if sets == nil {
		sets = []model.QuestionSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (h *SetHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *SetHandler) Update(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req setRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.setStore.Update(r.Context(), set.ID, req.Title, req.Description)
	if err != nil {
		h.logger.Error("update set", "error", err, "set_id", set.ID)
		writeError(w, http.StatusInternalServerError, "failed to update set")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	set, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if err := h.setStore.Delete(r.Context(), set.ID); err != nil {
		h.logger.Error("delete set", "error", err, "set_id", set.ID)
		writeError(w, http.StatusInternalServerError, "failed to delete set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SetHandler) load(w http.ResponseWriter, r *http.Request) (*model.QuestionSet, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	set, err := h.setStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get set", "error", err, "set_id", id)
		writeError(w, http.StatusInternalServerError, "failed to get set")
		return nil, false
	}
	if set == nil {
		writeError(w, http.StatusNotFound, "set not found")
		return nil, false
	}
	return set, true
}

// loadOwned loads the set and checks the caller is its author or staff.
func (h *SetHandler) loadOwned(w http.ResponseWriter, r *http.Request) (*model.QuestionSet, bool) {
	set, ok := h.load(w, r)
	if !ok {
		return nil, false
	}
	if set.AuthorID != auth.UserID(r.Context()) && !auth.IsStaff(r.Context()) {
		writeError(w, http.StatusForbidden, "only the author or an admin may change this set")
		return nil, false
	}
	return set, true
}
