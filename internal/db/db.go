package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

// Document is one row of an index table
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull"`
	Score         float64         `bun:"score,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with bun's pgdriver, or lib/pq when the
// driver is "postgres".
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	switch cfg.Driver {
	case "postgres":
		return sql.Open("postgres", cfg.DSN)
	case "pg", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

// PGVectorIndex stores chunks in a pgvector table named after the index
type PGVectorIndex struct {
	db        *bun.DB
	table     string
	dimension int
}

func NewPGVectorIndex(db *bun.DB, name string, dimension int) *PGVectorIndex {
	return &PGVectorIndex{db: db, table: name, dimension: dimension}
}

// EnsureIndex creates the vector extension and the index table if absent
func (p *PGVectorIndex) EnsureIndex(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := p.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS ? (id TEXT PRIMARY KEY, content TEXT NOT NULL, embedding vector(?) NOT NULL)",
		bun.Ident(p.table), p.dimension)
	if err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	log.Debug().Str("index", p.table).Int("dimension", p.dimension).Msg("pgvector table ready")
	return nil
}

// Upsert inserts records, overwriting rows with the same id
func (p *PGVectorIndex) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{ID: r.ID, Content: r.Content, Embedding: pgvector.NewVector(r.Embedding)}
	}

	_, err := p.db.NewInsert().
		Model(&docs).
		ModelTableExpr("?", bun.Ident(p.table)).
		Column("id", "content", "embedding").
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", p.table, err)
	}
	return nil
}

// Query returns the topK rows closest to vector by cosine distance, scored
// as cosine similarity
func (p *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return []models.Match{}, nil
	}
	query := pgvector.NewVector(vector)
	var docs []Document
	err := p.db.NewSelect().
		Model(&docs).
		ModelTableExpr("? AS d", bun.Ident(p.table)).
		Column("id", "content").
		ColumnExpr("1 - (embedding <=> ?) AS score", query).
		OrderExpr("embedding <=> ?", query).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.table, err)
	}

	matches := make([]models.Match, len(docs))
	for i, d := range docs {
		matches[i] = models.Match{ID: d.ID, Content: d.Content, Score: d.Score}
	}
	return matches, nil
}

// DropIndex removes the index table
func (p *PGVectorIndex) DropIndex(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(p.table))
	return err
}
