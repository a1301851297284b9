package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"ebook-rag/internal/config"
	"ebook-rag/internal/models"
)

const maxHeaderTokens = 10

// IsSectionHeader reports whether a paragraph looks like an ebook section
// header: all upper-case and at most ten words. Mixed-case headings are not
// detected and short shouted sentences are.
func IsSectionHeader(text string) bool {
	text = strings.TrimSpace(text)
	return isUpper(text) && len(strings.Fields(text)) <= maxHeaderTokens
}

// isUpper needs at least one cased rune and no lower or title case runes.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}

// chunkState is the running state of a single ChunkText pass
type chunkState struct {
	current string
	// header is the most recent section header. It is not cleared once used,
	// so it prefixes every chunk that starts from an empty buffer until a new
	// header replaces it.
	header string
	chunks []string
}

// ChunkText splits paragraph-delimited text into header-aware chunks.
// A chunk is flushed once it reaches size runes and the last overlap runes of
// the untrimmed chunk are carried into the next one.
func ChunkText(text string, size, overlap int) []string {
	var state chunkState

	for _, para := range strings.Split(text, models.ParagraphSeparator) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		processParagraph(para, &state, size, overlap)
	}

	if last := strings.TrimSpace(state.current); last != "" {
		state.chunks = append(state.chunks, last)
	}
	return state.chunks
}

func processParagraph(para string, state *chunkState, size, overlap int) {
	if IsSectionHeader(para) {
		state.header = para
		return
	}

	if state.current == "" && state.header != "" {
		state.current = state.header + models.ParagraphSeparator + para
	} else {
		state.current += models.ParagraphSeparator + para
	}

	if utf8.RuneCountInString(state.current) >= size {
		state.chunks = append(state.chunks, strings.TrimSpace(state.current))
		state.current = tailRunes(state.current, overlap)
	}
}

// tailRunes returns the last n runes of s; n <= 0 yields "".
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

// Chunker turns cleaned document text into identified chunks
type Chunker struct {
	size     int
	overlap  int
	idScheme string
}

func NewChunker(cfg *config.RAGConfig) *Chunker {
	return &Chunker{
		size:     cfg.ChunkSize,
		overlap:  cfg.ChunkOverlap,
		idScheme: cfg.IDScheme,
	}
}

func (c *Chunker) Chunk(text string) []models.Chunk {
	texts := ChunkText(text, c.size, c.overlap)
	chunks := make([]models.Chunk, len(texts))
	for i, content := range texts {
		chunks[i] = models.Chunk{
			ID:      ChunkID(c.idScheme, i, content),
			Content: content,
			Index:   i,
		}
	}
	return chunks
}

// ChunkID builds the vector index id for a chunk. Positional ids are
// "chunk-<i>"; re-indexing a shorter document leaves the old trailing ids in
// place. Content ids hash the chunk text instead.
func ChunkID(scheme string, index int, content string) string {
	if scheme == config.IDSchemeContent {
		sum := sha256.Sum256([]byte(content))
		return models.ChunkIDPrefix + hex.EncodeToString(sum[:8])
	}
	return fmt.Sprintf("%s%d", models.ChunkIDPrefix, index)
}
