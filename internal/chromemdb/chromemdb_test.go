package chromemdb

import (
	"context"
	"math"
	"testing"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

func newTestManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(&config.VectorDBConfig{
		IndexName:     "rag-pdf",
		InMemory:      true,
		Path:          t.TempDir(),
		EncryptionKey: "0123456789abcdef0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("NewVectorDBManager: %v", err)
	}
	if err := m.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	return m
}

func testRecords() []models.Record {
	s := float32(1 / math.Sqrt2)
	return []models.Record{
		{ID: "chunk-0", Content: "agents plan", Embedding: []float32{1, 0, 0}},
		{ID: "chunk-1", Content: "agents act", Embedding: []float32{s, s, 0}},
		{ID: "chunk-2", Content: "unrelated", Embedding: []float32{0, 0, 1}},
	}
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, testRecords()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := m.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3 (topK clamped to collection size)", len(matches))
	}
	wantIDs := []string{"chunk-0", "chunk-1", "chunk-2"}
	for i, id := range wantIDs {
		if matches[i].ID != id {
			t.Errorf("match %d = %s, want %s", i, matches[i].ID, id)
		}
	}
	if math.Abs(matches[0].Score-1) > 1e-4 {
		t.Errorf("top score = %v, want 1", matches[0].Score)
	}
	if math.Abs(matches[1].Score-1/math.Sqrt2) > 1e-4 {
		t.Errorf("second score = %v", matches[1].Score)
	}
	if matches[0].Content != "agents plan" {
		t.Errorf("content = %q", matches[0].Content)
	}
}

func TestQueryTopK(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	matches, err := m.Query(ctx, []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "chunk-2" {
		t.Errorf("matches = %+v", matches)
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	m := newTestManager(t)
	matches, err := m.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches from empty index", len(matches))
	}
}

func TestUpsertOverwritesByID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(ctx, []models.Record{{ID: "chunk-0", Content: "rewritten", Embedding: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}
	matches, err := m.Query(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].Content != "rewritten" {
		t.Errorf("content = %q, want rewritten", matches[0].Content)
	}
}

func TestEnsureIndexIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	if err := m.EnsureIndex(ctx); err != nil {
		t.Fatal(err)
	}
	if m.Count() != 3 {
		t.Errorf("EnsureIndex dropped documents, count = %d", m.Count())
	}
}

func TestOperationsRequireIndex(t *testing.T) {
	m, err := NewVectorDBManager(&config.VectorDBConfig{IndexName: "x", InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert(context.Background(), testRecords()); err == nil {
		t.Error("Upsert before EnsureIndex should fail")
	}
	if _, err := m.Query(context.Background(), []float32{1}, 1); err == nil {
		t.Error("Query before EnsureIndex should fail")
	}
}

func TestExportImport(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	if err := m.Upsert(ctx, testRecords()); err != nil {
		t.Fatal(err)
	}
	if err := m.Export(ctx); err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored, err := NewVectorDBManager(&config.VectorDBConfig{
		IndexName:     "rag-pdf",
		InMemory:      true,
		Path:          m.dbPath,
		EncryptionKey: m.encryptionKey,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Import(ctx); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored.Count() != 3 {
		t.Errorf("restored count = %d, want 3", restored.Count())
	}
}

func TestExportNeedsKey(t *testing.T) {
	m, err := NewVectorDBManager(&config.VectorDBConfig{IndexName: "x", InMemory: true, Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.EnsureIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Export(context.Background()); err == nil {
		t.Error("expected error without encryption key")
	}
}
