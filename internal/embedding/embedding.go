package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ebook-rag/internal/config"
)

var (
	ErrEmptyQuery        = errors.New("query cannot be empty")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Service maps text to fixed-length vectors through a langchaingo embedder
type Service struct {
	embedder  embeddings.Embedder
	dimension int
}

// NewService wraps an embedder. A dimension of 0 disables the length check.
func NewService(embedder embeddings.Embedder, dimension int) *Service {
	return &Service{embedder: embedder, dimension: dimension}
}

// New builds the embedder selected by cfg.Provider.
func New(cfg *config.LLMConfig, dimension int) (*Service, error) {
	var (
		embedder embeddings.Embedder
		err      error
	)
	switch cfg.Provider {
	case "ollama", "":
		embedder, err = NewOllamaEmbedder(cfg)
	case "openai":
		embedder, err = NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewService(embedder, dimension), nil
}

// NewOpenAIEmbedder creates an embedder for any OpenAI-compatible server
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating OpenAI embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init openai embedding client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder backed by a local Ollama server
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating Ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

func (s *Service) Dimension() int { return s.dimension }

// EmbedMany embeds texts in one batch, preserving order. No texts, no call.
func (s *Service) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := s.checkDimension(v); err != nil {
			return nil, err
		}
	}

	log.Debug().Int("texts", len(texts)).Msg("Generated embeddings")
	return vectors, nil
}

// EmbedOne embeds a single query. Blank text fails before any network call.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := s.checkDimension(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func (s *Service) checkDimension(v []float32) error {
	if s.dimension > 0 && len(v) != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), s.dimension)
	}
	return nil
}
