package chat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"ebook-rag/internal/helper"
	"ebook-rag/internal/models"
)

// Invoker runs one query through the pipeline graph
type Invoker interface {
	Invoke(ctx context.Context, state models.State) (models.State, error)
}

// Message is one entry of the chat history. Assistant messages carry the
// confidence and the context chunks the answer was grounded on.
type Message struct {
	Role       string
	Content    string
	Confidence *float64
	Contexts   []string
	CreatedAt  time.Time
}

// Session keeps the history of one conversation. The history may be read
// while a query is still running.
type Session struct {
	ID string

	mu       sync.Mutex
	messages []Message
	graph    Invoker
	now      func() time.Time
}

func NewSession(graph Invoker) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, graph: graph, now: time.Now}, nil
}

// Ask answers a query and records the exchange. On error the history is left
// untouched.
func (s *Session) Ask(ctx context.Context, query string) (*models.PromptResponse, error) {
	state, err := s.graph.Invoke(ctx, models.State{Query: query})
	if err != nil {
		return nil, err
	}
	resp := state.Response()

	conf := resp.Confidence
	now := s.now()
	s.mu.Lock()
	s.messages = append(s.messages,
		Message{Role: models.RoleUser, Content: query, CreatedAt: now},
		Message{Role: models.RoleAssistant, Content: resp.Answer, Confidence: &conf, Contexts: resp.Contexts, CreatedAt: now},
	)
	n := len(s.messages)
	s.mu.Unlock()

	log.Debug().Str("session", s.ID).Int("messages", n).Float64("confidence", conf).Msg("Recorded answer")
	return resp, nil
}

// Messages returns a snapshot of the history
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Markdown renders the history as a markdown document
func (s *Session) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chat session %s\n\n", s.ID)
	for _, m := range s.Messages() {
		switch m.Role {
		case models.RoleUser:
			fmt.Fprintf(&b, "## Question\n\n%s\n\n", m.Content)
		default:
			fmt.Fprintf(&b, "### Answer\n\n%s\n\n", m.Content)
			if m.Confidence != nil {
				fmt.Fprintf(&b, "**Confidence:** %.2f\n\n", *m.Confidence)
			}
			if len(m.Contexts) > 0 {
				b.WriteString("| # | Context |\n|---|---|\n")
				for i, c := range m.Contexts {
					fmt.Fprintf(&b, "| %d | %s |\n", i+1, tableCell(c))
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// ExportHTML writes the history as an HTML fragment
func (s *Session) ExportHTML(w io.Writer) error {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(s.Markdown()), &buf); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
