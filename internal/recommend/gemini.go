package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dukerupert/practicum/internal/question"
)

const systemInstruction = "You are a patient physics tutor for high school and early university students. " +
	"Answer in plain text, concisely."

type GeminiConfig struct {
	APIKey     string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
}

// generateFunc sends one prompt and returns the model's text.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Gemini is a Recommender backed by the Gemini API.
type Gemini struct {
	client     *genai.Client
	generate   generateFunc
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: genai.Ptr[int32](800),
	}

	g := newGemini(func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		return responseText(resp)
	}, cfg, logger)
	g.client = client

	logger.Info("gemini recommender initialized", "model", cfg.ModelName, "max_retries", g.maxRetries)
	return g, nil
}

func newGemini(gen generateFunc, cfg GeminiConfig, logger *slog.Logger) *Gemini {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Gemini{
		generate:   gen,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Explain(ctx context.Context, q question.View) (string, error) {
	return g.ask(ctx, explainPrompt(q))
}

func (g *Gemini) Recommend(ctx context.Context, p Profile) (string, error) {
	return g.ask(ctx, recommendPrompt(p))
}

func (g *Gemini) ask(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("retrying gemini request", "attempt", attempt+1, "max_retries", g.maxRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.retryDelay):
			}
		}

		text, err := g.generate(ctx, prompt)
		if err != nil {
			lastErr = err
			g.logger.Error("gemini request failed", "error", err, "attempt", attempt+1)
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			lastErr = errors.New("empty response from gemini")
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
