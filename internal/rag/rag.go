package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"ebook-rag/internal/models"
)

// VectorIndex is the similarity store the pipeline reads from and the indexer writes to
type VectorIndex interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []models.Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
}

type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, query string, contexts []string) (string, error)
}

// Retriever embeds a query and keeps the index matches above the threshold
type Retriever struct {
	embedder  Embedder
	index     VectorIndex
	topK      int
	threshold float64
}

func NewRetriever(embedder Embedder, index VectorIndex, topK int, threshold float64) *Retriever {
	return &Retriever{embedder: embedder, index: index, topK: topK, threshold: threshold}
}

// Retrieve keeps the index's ranking; filtered slices are never nil.
func (r *Retriever) Retrieve(ctx context.Context, query string) (models.RetrievedContext, error) {
	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return models.RetrievedContext{}, err
	}

	matches, err := r.index.Query(ctx, vector, r.topK)
	if err != nil {
		return models.RetrievedContext{}, fmt.Errorf("query index: %w", err)
	}

	out := models.RetrievedContext{
		Contexts: make([]string, 0, len(matches)),
		Scores:   make([]float64, 0, len(matches)),
	}
	for _, m := range matches {
		if m.Score < r.threshold {
			continue
		}
		out.Contexts = append(out.Contexts, m.Content)
		out.Scores = append(out.Scores, m.Score)
	}

	log.Debug().Int("matches", len(matches)).Int("kept", len(out.Contexts)).Float64("threshold", r.threshold).Msg("Retrieved chunks")
	return out, nil
}

// Pipeline runs retrieve, generate and score as a plain call chain.
// Its collaborators are built once and shared across queries.
type Pipeline struct {
	retriever *Retriever
	generator AnswerGenerator
}

func NewPipeline(retriever *Retriever, generator AnswerGenerator) *Pipeline {
	return &Pipeline{retriever: retriever, generator: generator}
}

// Run answers a single query. External failures are returned unchanged in
// kind; there are no retries. The graph form runs the same two stages.
func (p *Pipeline) Run(ctx context.Context, query string) (*models.PromptResponse, error) {
	state := models.State{Query: query}
	for _, stage := range []NodeFunc{p.retrieveNode, p.generateNode} {
		update, err := stage(ctx, state)
		if err != nil {
			return nil, err
		}
		if state, err = mergeState(state, update); err != nil {
			return nil, err
		}
	}
	return state.Response(), nil
}
