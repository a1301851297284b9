package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"ebook-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const defaultMinPageChars = 50

// LoadPDF extracts the text of every page, drops near-empty pages, cleans the
// rest and joins them with blank lines so each page is one paragraph.
func LoadPDF(filePath string, minPageChars int) (string, error) {
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".pdf" {
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filePath, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}

	text := JoinPages(pages, minPageChars)
	log.Info().Str("file", filePath).Int("pages", numPages).Int("chars", len(text)).Msg("Loaded PDF")
	return text, nil
}

// JoinPages cleans raw page texts and joins the ones worth keeping.
// Pages whose trimmed text is shorter than minPageChars are treated as noise;
// a negative minimum selects the default.
func JoinPages(pages []string, minPageChars int) string {
	if minPageChars < 0 {
		minPageChars = defaultMinPageChars
	}

	kept := make([]string, 0, len(pages))
	for i, raw := range pages {
		if utf8.RuneCountInString(strings.TrimSpace(raw)) < minPageChars {
			log.Debug().Int("page", i+1).Msg("Skipping near-empty page")
			continue
		}
		if cleaned := CleanText(raw); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, models.ParagraphSeparator)
}
