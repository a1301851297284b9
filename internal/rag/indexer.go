package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"ebook-rag/internal/models"
)

// Chunker splits cleaned document text into identified chunks
type Chunker interface {
	Chunk(text string) []models.Chunk
}

// LoadFunc turns a document path into cleaned, paragraph-delimited text
type LoadFunc func(path string) (string, error)

type Indexer struct {
	load     LoadFunc
	chunker  Chunker
	embedder Embedder
	index    VectorIndex
	dryRun   bool
}

func NewIndexer(load LoadFunc, chunker Chunker, embedder Embedder, index VectorIndex, dryRun bool) *Indexer {
	return &Indexer{load: load, chunker: chunker, embedder: embedder, index: index, dryRun: dryRun}
}

// IndexPDF loads, chunks, embeds and upserts a document, returning the
// chunks it produced. A dry run stops after chunking.
func (ix *Indexer) IndexPDF(ctx context.Context, path string) ([]models.Chunk, error) {
	text, err := ix.load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	chunks := ix.chunker.Chunk(text)
	log.Info().Int("chunks", len(chunks)).Msg("Chunked document")
	if ix.dryRun {
		return chunks, nil
	}

	if err := ix.IndexChunks(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// IndexChunks embeds all chunks in one batch and writes them to the index
func (ix *Indexer) IndexChunks(ctx context.Context, chunks []models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return err
	}

	if err := ix.index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	records := make([]models.Record, len(chunks))
	for i, c := range chunks {
		records[i] = models.Record{ID: c.ID, Content: c.Content, Embedding: vectors[i]}
	}
	if err := ix.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	log.Info().Int("records", len(records)).Msg("Stored chunks in vector index")
	return nil
}
