package embedding

import (
	"context"
	"errors"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	apperrors "notegraph/pkg/errors"
)

// Ollama embeds text with a local Ollama server through langchaingo
type Ollama struct {
	embedder embeddings.Embedder
	model    string
}

// NewOllama creates an Ollama provider for serverURL and model
func NewOllama(serverURL, model string) (*Ollama, error) {
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, apperrors.NewProviderFailed("ollama", false, err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, apperrors.NewProviderFailed("ollama", false, err)
	}
	return &Ollama{embedder: embedder, model: model}, nil
}

// Model returns the embedding model id
func (p *Ollama) Model() string {
	return p.model
}

// Embed computes one embedding. Ollama runs locally, so failures are
// reported as retryable without retrying here.
func (p *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, apperrors.NewProviderFailed("ollama", ctx.Err() == nil, err)
	}
	if len(vec) == 0 {
		return nil, apperrors.NewProviderFailed("ollama", false, errors.New("empty embedding in response"))
	}
	return vec, nil
}
