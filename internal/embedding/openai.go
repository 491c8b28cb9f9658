package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "notegraph/pkg/errors"
	"notegraph/pkg/logger"
)

const maxRetries = 3

// OpenAI embeds text through an OpenAI-compatible embeddings endpoint
type OpenAI struct {
	client  *openai.Client
	model   string
	backoff time.Duration
	logger  *zap.Logger
}

// NewOpenAI creates an OpenAI provider. baseURL includes the /v1 suffix.
func NewOpenAI(baseURL, apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, apperrors.NewConfigValidationFailed("OPENAI_API_KEY", "required for the openai provider")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		backoff: time.Second,
		logger:  logger.Get(),
	}, nil
}

// Model returns the embedding model id
func (p *OpenAI) Model() string {
	return p.model
}

// Embed requests one embedding, retrying transient failures with linear backoff
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * p.backoff
			p.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.NewProviderFailed("openai", false, ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err = p.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}
		p.logger.Error("Embedding request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", p.model),
		)
		if !retryable(err) {
			return nil, apperrors.NewProviderFailed("openai", false, err)
		}
	}
	if err != nil {
		return nil, apperrors.NewProviderFailed("openai", true,
			fmt.Errorf("failed after %d attempts: %w", maxRetries, err))
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, apperrors.NewProviderFailed("openai", false, errors.New("empty embedding in response"))
	}
	return resp.Data[0].Embedding, nil
}

// retryable reports whether an OpenAI error is worth another attempt:
// rate limits, server errors and transport failures.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}
