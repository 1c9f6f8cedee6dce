// Package openai implements the Embedder interface on the OpenAI
// embeddings API (text-embedding-ada-002, 1536 dimensions).
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Dimensions is the ada-002 vector size.
const Dimensions = 1536

// Embedder generates embeddings via the OpenAI API.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// Config configures the OpenAI embedder.
type Config struct {
	// APIKey authenticates against the API.
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string
}

// New creates an OpenAI-backed embedder.
func New(cfg Config) *Embedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.AdaEmbeddingV2,
	}
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return Dimensions
}
