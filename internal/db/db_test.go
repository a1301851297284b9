package db

import (
	"context"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pgvector/pgvector-go"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

func newMockIndex(t *testing.T) (*PGVectorIndex, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	bunDB := NewDB(sqldb, false)
	t.Cleanup(func() { bunDB.Close() })
	return NewPGVectorIndex(bunDB, "rag-pdf", 384), mock
}

func TestEnsureIndex(t *testing.T) {
	idx, mock := newMockIndex(t)
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS vector`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "rag-pdf" \(id TEXT PRIMARY KEY, content TEXT NOT NULL, embedding vector\(384\) NOT NULL\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := idx.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpsert(t *testing.T) {
	idx, mock := newMockIndex(t)
	mock.ExpectExec(`(?s)INSERT INTO "rag-pdf".*'chunk-0'.*'\[1,0,0\]'.*'chunk-1'.*ON CONFLICT \(id\) DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := idx.Upsert(context.Background(), []models.Record{
		{ID: "chunk-0", Content: "agents plan", Embedding: []float32{1, 0, 0}},
		{ID: "chunk-1", Content: "agents act", Embedding: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpsertNothing(t *testing.T) {
	idx, mock := newMockIndex(t)
	if err := idx.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQuery(t *testing.T) {
	idx, mock := newMockIndex(t)
	rows := sqlmock.NewRows([]string{"id", "content", "score"}).
		AddRow("chunk-0", "agents plan", 0.91).
		AddRow("chunk-2", "agents act", 0.62)
	mock.ExpectQuery(`(?s)SELECT .*1 - \(embedding <=> '\[1,0,0\]'\) AS score.*FROM "rag-pdf" AS d.*ORDER BY embedding <=> '\[1,0,0\]'.*LIMIT 2`).
		WillReturnRows(rows)

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].ID != "chunk-0" || matches[1].ID != "chunk-2" {
		t.Errorf("ids = %s, %s", matches[0].ID, matches[1].ID)
	}
	if math.Abs(matches[0].Score-0.91) > 1e-9 || matches[1].Content != "agents act" {
		t.Errorf("matches = %+v", matches)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestQueryZeroTopK(t *testing.T) {
	idx, mock := newMockIndex(t)
	matches, err := idx.Query(context.Background(), []float32{1}, 0)
	if err != nil || len(matches) != 0 {
		t.Errorf("matches = %v, err = %v", matches, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestConnectDB(t *testing.T) {
	if _, err := ConnectDB(&config.DatabaseConfig{Driver: "pg"}); err == nil {
		t.Error("expected error for empty dsn")
	}
	if _, err := ConnectDB(&config.DatabaseConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	sqldb, err := ConnectDB(&config.DatabaseConfig{Driver: "postgres", DSN: "postgres://localhost/rag?sslmode=disable"})
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	sqldb.Close()
}

func TestDocumentEmbeddingRoundTrip(t *testing.T) {
	doc := Document{Embedding: pgvector.NewVector([]float32{1, 0.5, -2})}
	v, err := doc.Embedding.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "[1,0.5,-2]" {
		t.Errorf("Value = %v", v)
	}

	var got pgvector.Vector
	if err := got.Scan([]byte("[1,0.5,-2]")); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if s := got.Slice(); len(s) != 3 || s[1] != 0.5 || s[2] != -2 {
		t.Errorf("Scan = %v", s)
	}
	if err := got.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}
