package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiCompleter implements Completer against the Gemini API
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter builds a completer for the given API key. An empty
// model selects the default.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrServiceDisabled
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// Complete runs a single-turn generation and returns the text response
func (g *GeminiCompleter) Complete(ctx context.Context, prompt, purpose string) (string, error) {
	timer := metrics.NewTimer()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		metrics.ExternalCalls.WithLabelValues("gemini", "error").Inc()
		return "", fmt.Errorf("gemini %s call failed: %w", purpose, err)
	}
	metrics.ExternalCalls.WithLabelValues("gemini", "ok").Inc()
	log.WithComponent("gemini").Debug().
		Str("purpose", purpose).
		Dur("elapsed", timer.Duration()).
		Msg("Completion returned")
	return resp.Text(), nil
}
