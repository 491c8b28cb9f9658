// Package embedding turns note text into vectors through a pluggable provider.
package embedding

import (
	"context"
	"fmt"

	"notegraph/pkg/config"
)

// Provider computes an embedding for a piece of text. Vectors from one
// provider and model share a dimensionality.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the vectors this provider produces; stored alongside
	// each embedding so a model switch triggers re-embedding.
	Model() string
}

// PrepareText builds the text embedded for a note: title, a blank line, then
// content, cut to maxChars runes. maxChars <= 0 disables the cut.
func PrepareText(title, content string, maxChars int) string {
	text := title + "\n\n" + content
	if maxChars <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i]
		}
		count++
	}
	return text
}

// New builds the provider selected by cfg, wrapped in a rate limiter when
// cfg.EmbedRateLimit > 0.
func New(cfg *config.Config) (Provider, error) {
	var p Provider
	switch cfg.EmbeddingProvider {
	case "openai":
		op, err := NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		p = op
	case "ollama":
		op, err := NewOllama(cfg.OllamaURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		p = op
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	if cfg.EmbedRateLimit > 0 {
		p = NewRateLimited(p, cfg.EmbedRateLimit, cfg.EmbedBurst)
	}
	return p, nil
}
