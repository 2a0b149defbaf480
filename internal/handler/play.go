package handler

import (
	"net/http"

	"github.com/dukerupert/practicum/internal/question"
)

// Picker draws practice questions.
type Picker interface {
	Generate(qtype, setID string, bucket question.Bucket) (question.View, bool)
	Fetch(id string) (*question.Question, bool)
}

type PlayHandler struct {
	picker Picker
}

func NewPlayHandler(p Picker) *PlayHandler {
	return &PlayHandler{picker: p}
}

// Next serves GET /api/play/next?type=&set=&difficulty=. A missing type
// matches every type.
func (h *PlayHandler) Next(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bucket, ok := question.ParseBucket(q.Get("difficulty"))
	if !ok {
		writeError(w, http.StatusBadRequest, "difficulty must be easy, medium, hard, or random")
		return
	}
	qtype := q.Get("type")
	if qtype == "" {
		qtype = question.AnyType
	}

	v, ok := h.picker.Generate(qtype, q.Get("set"), bucket)
	if !ok {
		writeError(w, http.StatusNotFound, "no questions available")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *PlayHandler) Question(w http.ResponseWriter, r *http.Request) {
	qq, ok := h.picker.Fetch(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, qq.View())
}
