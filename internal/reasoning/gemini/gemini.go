// Package gemini implements reasoning.Generator over the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/shared/telemetry"
)

// ProviderName is recorded on jobs analysed by this generator.
const ProviderName = "gemini"

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gemini-2.0-flash"

// Generator calls Models.GenerateContent with a single text part.
type Generator struct {
	client *genai.Client
	model  string
}

// New creates a Gemini generator for the public Gemini API.
func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	return newWithConfig(ctx, model, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newWithConfig(ctx context.Context, model string, cfg *genai.ClientConfig) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// Generate returns the concatenated text of the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if resp.UsageMetadata != nil {
		telemetry.Info("reasoning.usage", map[string]any{
			"provider":          ProviderName,
			"model":             g.model,
			"prompt_tokens":     resp.UsageMetadata.PromptTokenCount,
			"completion_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens":      resp.UsageMetadata.TotalTokenCount,
		})
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return text, nil
}

var _ reasoning.Generator = (*Generator)(nil)
