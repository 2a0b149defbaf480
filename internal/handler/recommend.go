package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/recommend"
)

type RecommendHandler struct {
	rec    recommend.Recommender
	picker Picker
	logger *slog.Logger
}

func NewRecommendHandler(rec recommend.Recommender, p Picker, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{rec: rec, picker: p, logger: logger}
}

// recommendRequest is tagged by Kind: "explain" takes QuestionID,
// "recommend" takes Strengths and Weaknesses.
type recommendRequest struct {
	Kind       string   `json:"kind"`
	QuestionID string   `json:"question_id,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

func (h *RecommendHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		text string
		err  error
	)
	switch req.Kind {
	case "explain":
		if req.QuestionID == "" || len(req.Strengths) > 0 || len(req.Weaknesses) > 0 {
			writeError(w, http.StatusBadRequest, "explain takes only question_id")
			return
		}
		q, ok := h.picker.Fetch(req.QuestionID)
		if !ok {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}
		text, err = h.rec.Explain(r.Context(), q.View())
	case "recommend":
		if req.QuestionID != "" {
			writeError(w, http.StatusBadRequest, "recommend does not take question_id")
			return
		}
		c := auth.Credentials(r.Context())
		text, err = h.rec.Recommend(r.Context(), recommend.Profile{
			Name:       c.Name,
			LoginCount: c.LoginCount,
			Strengths:  req.Strengths,
			Weaknesses: req.Weaknesses,
		})
	default:
		writeError(w, http.StatusBadRequest, "kind must be explain or recommend")
		return
	}

	if errors.Is(err, recommend.ErrDisabled) {
		writeError(w, http.StatusServiceUnavailable, "recommendations are not configured")
		return
	}
	if err != nil {
		h.logger.Error("recommend", "kind", req.Kind, "error", err)
		writeError(w, http.StatusBadGateway, "recommendation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kind": req.Kind, "text": text})
}
