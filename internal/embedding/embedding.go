package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"document-chat/internal/config"
)

// EmbedError marks a failure of the embedding model for one input. It aborts
// that chunk's indexing or that query, nothing more.
type EmbedError struct {
	Err error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// OllamaEmbedder maps text to fixed-length vectors through a local Ollama
// embedding model. The same instance must serve both ingestion and queries;
// vectors from different models live in different spaces.
type OllamaEmbedder struct {
	embedder *embeddings.EmbedderImpl
	model    string
}

func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	return &OllamaEmbedder{embedder: embedder, model: llmConfig.Model}, nil
}

func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &EmbedError{Err: err}
	}
	return vector, nil
}

func (e *OllamaEmbedder) Model() string {
	return e.model
}
