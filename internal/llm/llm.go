// Package llm wraps the text-generation collaborator behind a one-method
// interface. The rest of the codebase builds prompts and parses responses;
// this package only moves text back and forth.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator is a synchronous text completion oracle. Responses carry no
// structured-output guarantee; callers must parse defensively (see parse.go).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig holds settings for the Gemini-backed Generator.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API.
	APIKey string
	// Model is the model identifier to use for all calls.
	Model string
}

// DefaultGeminiConfig returns the default model selection. The API key must
// be supplied by the caller.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model: "gemini-2.5-pro",
	}
}

// Gemini implements Generator against the Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ Generator = (*Gemini)(nil)

// NewGemini creates a Gemini client. The client holds a connection and must
// be closed by the caller when no longer needed.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
	}, nil
}

// Generate sends the prompt and returns the concatenated text parts of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: response contained no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Close releases the underlying client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}
