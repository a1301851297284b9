package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

var errNoCollection = errors.New("collection is not initialised, call EnsureIndex first")

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	name          string
	dbPath        string
	compress      bool
	encryptionKey string
	filePath      string
}

// NewVectorDBManager opens a persistent database under cfg.Path, or an
// in-memory one when cfg.InMemory is set.
func NewVectorDBManager(cfg *config.VectorDBConfig) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		name:          cfg.IndexName,
		dbPath:        cfg.Path,
		compress:      cfg.Compress,
		encryptionKey: cfg.EncryptionKey,
		filePath:      filepath.Join(cfg.Path, cfg.IndexName+".chromem"),
	}, nil
}

// EnsureIndex creates the collection if it does not exist yet. Safe to call repeatedly.
func (m *VectorDBManager) EnsureIndex(ctx context.Context) error {
	if m.collection != nil {
		return nil
	}
	c, err := m.db.GetOrCreateCollection(m.name, map[string]string{"metric": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	log.Debug().Str("index", m.name).Int("documents", c.Count()).Msg("Collection ready")
	return nil
}

// Upsert adds records, replacing any document that already has the same id
func (m *VectorDBManager) Upsert(ctx context.Context, records []models.Record) error {
	if m.collection == nil {
		return errNoCollection
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  map[string]string{models.MetadataTextKey: r.Content},
			Embedding: r.Embedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Str("index", m.name).Int("documents", len(docs)).Msg("Upserted documents")
	return nil
}

// Query returns up to topK matches ordered by descending cosine similarity
func (m *VectorDBManager) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if m.collection == nil {
		return nil, errNoCollection
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	// chromem refuses nResults larger than the collection
	n := min(topK, m.collection.Count())
	if n <= 0 {
		return []models.Match{}, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]models.Match, len(results))
	for i, r := range results {
		content := r.Content
		if text, ok := r.Metadata[models.MetadataTextKey]; ok {
			content = text
		}
		matches[i] = models.Match{
			ID:      r.ID,
			Content: content,
			Score:   float64(r.Similarity),
		}
	}
	return matches, nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// SnapshotPath is the file Export writes and Import reads
func (m *VectorDBManager) SnapshotPath() string { return m.filePath }

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes the collection to an encrypted file next to the database
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.collection == nil {
		return errNoCollection
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}

	log.Debug().Str("index", m.name).Str("file", m.filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads a previous export into the database
func (m *VectorDBManager) Import(ctx context.Context) error {
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = m.db.GetCollection(m.name, nil)
	return nil
}
