// Package app wires configuration into the vector index and the query
// pipeline shared by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"ebook-rag/internal/chromemdb"
	"ebook-rag/internal/config"
	"ebook-rag/internal/db"
	"ebook-rag/internal/embedding"
	"ebook-rag/internal/helper"
	"ebook-rag/internal/llmservice"
	"ebook-rag/internal/rag"
)

// Store is an opened vector index plus the lifecycle hooks of its backend.
type Store struct {
	rag.VectorIndex

	reset   func(ctx context.Context) error
	persist func(ctx context.Context) error
	close   func() error
}

// OpenIndex opens the backend named by cfg.VectorDB.Type and makes sure the
// index exists. An in-memory chromem index with an encryption key is restored
// from its last snapshot, if there is one.
func OpenIndex(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.VectorDB.Type {
	case config.VectorDBChromem, "":
		return openChromem(ctx, &cfg.VectorDB)
	case config.VectorDBPGVector:
		return openPGVector(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown vector db type: %s", cfg.VectorDB.Type)
	}
}

func openChromem(ctx context.Context, cfg *config.VectorDBConfig) (*Store, error) {
	if !cfg.InMemory || cfg.EncryptionKey != "" {
		if err := helper.CreateFolder(cfg.Path); err != nil {
			return nil, err
		}
	}
	m, err := chromemdb.NewVectorDBManager(cfg)
	if err != nil {
		return nil, err
	}

	snapshot := cfg.InMemory && cfg.EncryptionKey != ""
	if snapshot && fileExists(m.SnapshotPath()) {
		if err := m.Import(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("index", cfg.IndexName).Int("records", m.Count()).Msg("Restored index snapshot")
	}
	if err := m.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	s := &Store{
		VectorIndex: m,
		reset: func(ctx context.Context) error {
			if err := m.DeleteCollection(); err != nil {
				return err
			}
			return m.EnsureIndex(ctx)
		},
		persist: func(context.Context) error { return nil },
		close:   func() error { return nil },
	}
	if snapshot {
		s.persist = m.Export
	}
	return s, nil
}

func openPGVector(ctx context.Context, cfg *config.Config) (*Store, error) {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return newPGStore(ctx, bunDB, &cfg.VectorDB)
}

func newPGStore(ctx context.Context, bunDB *bun.DB, cfg *config.VectorDBConfig) (*Store, error) {
	index := db.NewPGVectorIndex(bunDB, cfg.IndexName, cfg.Dimension)
	if err := index.EnsureIndex(ctx); err != nil {
		bunDB.Close()
		return nil, err
	}
	return &Store{
		VectorIndex: index,
		reset: func(ctx context.Context) error {
			if err := index.DropIndex(ctx); err != nil {
				return err
			}
			return index.EnsureIndex(ctx)
		},
		persist: func(context.Context) error { return nil },
		close:   bunDB.Close,
	}, nil
}

// Reset drops every record of the index, leaving it empty but usable.
func (s *Store) Reset(ctx context.Context) error { return s.reset(ctx) }

// Persist writes a snapshot when the backend keeps data only in memory.
func (s *Store) Persist(ctx context.Context) error { return s.persist(ctx) }

func (s *Store) Close() error { return s.close() }

// NewPipeline builds the embedder, the chat model and the retriever once.
func NewPipeline(cfg *config.Config, index rag.VectorIndex) (*rag.Pipeline, error) {
	emb, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ChatLLM.Key == "" {
		return nil, fmt.Errorf("chat model key is missing, set %s", cfg.ChatLLM.KeyEnv)
	}
	llm, err := llmservice.NewChatModel(&cfg.ChatLLM)
	if err != nil {
		return nil, err
	}
	retriever := rag.NewRetriever(emb, index, cfg.RAG.TopK, cfg.RAG.ScoreThreshold)
	return rag.NewPipeline(retriever, llmservice.NewGenerator(llm, cfg.ChatLLM.Temperature)), nil
}

func NewEmbedder(cfg *config.Config) (*embedding.Service, error) {
	return embedding.New(&cfg.EmbedLLM, cfg.VectorDB.Dimension)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
