// Package question holds the read-only practice question bank and the
// adaptive selector that draws from it.
package question

import "strings"

// Question is a bank entry as stored on disk. IDs have the form
// "<bank>.<setID>"; everything after the first dot is the set segment.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Type          string   `json:"type" yaml:"type"`
	Difficulty    int      `json:"difficulty" yaml:"difficulty"`
	AnswerMethod  string   `json:"answerMethod" yaml:"answerMethod"`
	DisplayMethod string   `json:"displayMethod" yaml:"displayMethod"`
	Question      string   `json:"question" yaml:"question"`
	Tags          []string `json:"tags" yaml:"tags"`
	Choices       []string `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// SetID returns the set segment of the question's id, or "" if it has none.
func (q *Question) SetID() string {
	_, set, ok := strings.Cut(q.ID, ".")
	if !ok {
		return ""
	}
	return set
}

// View is the shape handed to players. The answer method is exposed as type.
type View struct {
	ID            string   `json:"id"`
	DisplayMethod string   `json:"displayMethod"`
	Question      string   `json:"question"`
	Difficulty    int      `json:"difficulty"`
	Tags          []string `json:"tags"`
	Type          string   `json:"type"`
	Choices       []string `json:"choices,omitempty"`
}

func (q *Question) View() View {
	return View{
		ID:            q.ID,
		DisplayMethod: q.DisplayMethod,
		Question:      q.Question,
		Difficulty:    q.Difficulty,
		Tags:          append([]string(nil), q.Tags...),
		Type:          q.AnswerMethod,
		Choices:       append([]string(nil), q.Choices...),
	}
}
