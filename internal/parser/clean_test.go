package parser

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"collapse", "Agentic\n\nAI   systems\tplan", "Agentic AI systems plan"},
		{"page number", "end of chapter 12", "end of chapter"},
		{"leaves gap", "Page 12 Some text", "Page  Some text"},
		{"keeps long numbers", "in 2024 we saw", "in 2024 we saw"},
		{"leading number", "7 Habits", "Habits"},
		{"unicode whitespace", "Agentic\u00a0\u00a0AI\u2003systems\vplan", "Agentic AI systems plan"},
		{"digits glued to accented word", "café12 x", "café12 x"},
		{"digits glued to underscore", "step_12 done", "step_12 done"},
		{"adjacent numbers", "page 1 2 end", "page   end"},
		{"non-ascii digits", "see \u0661\u0662 here", "see  here"},
		{"punctuation neighbours", "(12) notes", "() notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestJoinPagesDropsShortPages(t *testing.T) {
	long1 := "Agentic AI systems decide what to do next based on goals and feedback."
	long2 := "Tools extend the agent with search, code execution and memory.\n\n  42  "
	pages := []string{"3", long1, "   ", long2}

	text := JoinPages(pages, 50)
	parts := strings.Split(text, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("got %d paragraphs, want 2: %q", len(parts), text)
	}
	if parts[0] != long1 {
		t.Errorf("page 1 = %q", parts[0])
	}
	if parts[1] != "Tools extend the agent with search, code execution and memory." {
		t.Errorf("page 2 = %q", parts[1])
	}
}

func TestJoinPagesDefaultMinimum(t *testing.T) {
	if got := JoinPages([]string{"too short"}, -1); got != "" {
		t.Errorf("JoinPages = %q, want empty", got)
	}
	if got := JoinPages([]string{"too short", "12 kept"}, 0); got != "too short\n\nkept" {
		t.Errorf("JoinPages with zero minimum = %q", got)
	}
}

func TestLoadPDFRejectsOtherFormats(t *testing.T) {
	if _, err := LoadPDF("notes.docx", 50); err == nil {
		t.Error("expected unsupported format error")
	}
}
