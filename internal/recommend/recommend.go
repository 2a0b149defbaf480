// Package recommend produces explanations and practice advice from an LLM.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/practicum/internal/question"
)

// ErrDisabled is returned when no model is configured.
var ErrDisabled = errors.New("recommendations are disabled")

// Profile summarizes a player for a recommendation request.
type Profile struct {
	Name       string   `json:"name"`
	LoginCount int64    `json:"login_count"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

type Recommender interface {
	Explain(ctx context.Context, q question.View) (string, error)
	Recommend(ctx context.Context, p Profile) (string, error)
}

// Disabled answers every call with ErrDisabled.
type Disabled struct{}

func (Disabled) Explain(context.Context, question.View) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Recommend(context.Context, Profile) (string, error) {
	return "", ErrDisabled
}

func explainPrompt(q question.View) string {
	var b strings.Builder
	b.WriteString("Explain how to solve this physics practice question step by step. ")
	b.WriteString("Do not just state the answer.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", q.Question)
	fmt.Fprintf(&b, "Difficulty: %d/10\n", q.Difficulty)
	if len(q.Tags) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(q.Tags, ", "))
	}
	if len(q.Choices) > 0 {
		fmt.Fprintf(&b, "Choices: %s\n", strings.Join(q.Choices, " | "))
	}
	return b.String()
}

func recommendPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("Suggest what a physics student should practice next, in three short bullet points.\n\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "Student: %s\n", p.Name)
	}
	fmt.Fprintf(&b, "Sessions so far: %d\n", p.LoginCount)
	if len(p.Strengths) > 0 {
		fmt.Fprintf(&b, "Strong topics: %s\n", strings.Join(p.Strengths, ", "))
	}
	if len(p.Weaknesses) > 0 {
		fmt.Fprintf(&b, "Weak topics: %s\n", strings.Join(p.Weaknesses, ", "))
	}
	return b.String()
}
