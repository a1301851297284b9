package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ebook-rag/internal/models"
)

type fakeGraph struct {
	answer   string
	contexts []string
	conf     float64
	err      error
	queries  []string
}

func (f *fakeGraph) Invoke(_ context.Context, state models.State) (models.State, error) {
	f.queries = append(f.queries, state.Query)
	if f.err != nil {
		return state, f.err
	}
	answer, conf := f.answer, f.conf
	state.Contexts = f.contexts
	state.Answer = &answer
	state.Confidence = &conf
	return state, nil
}

func newSession(t *testing.T, g Invoker) *Session {
	t.Helper()
	s, err := NewSession(g)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSessionID(t *testing.T) {
	a, b := newSession(t, &fakeGraph{}), newSession(t, &fakeGraph{})
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("id %q: %v", a.ID, err)
	}
	if a.ID == b.ID {
		t.Error("sessions share an id")
	}
}

func TestAskRecordsExchange(t *testing.T) {
	g := &fakeGraph{answer: "Agents use tools.", contexts: []string{"TOOLS\n\nAgents call tools."}, conf: 0.82}
	s := newSession(t, g)

	resp, err := s.Ask(context.Background(), "how do agents use tools?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Answer != "Agents use tools." || resp.Confidence != 0.82 {
		t.Errorf("resp = %+v", resp)
	}
	if len(s.Messages()) != 2 {
		t.Fatalf("messages = %+v", s.Messages())
	}
	msgs := s.Messages()
	user, assistant := msgs[0], msgs[1]
	if user.Role != models.RoleUser || user.Content != "how do agents use tools?" || user.Confidence != nil {
		t.Errorf("user message = %+v", user)
	}
	if assistant.Role != models.RoleAssistant || assistant.Confidence == nil || *assistant.Confidence != 0.82 {
		t.Errorf("assistant message = %+v", assistant)
	}
	if len(assistant.Contexts) != 1 {
		t.Errorf("contexts = %v", assistant.Contexts)
	}
}

func TestAskErrorLeavesHistory(t *testing.T) {
	boom := errors.New("rate limited")
	s := newSession(t, &fakeGraph{err: boom})
	if _, err := s.Ask(context.Background(), "q"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if len(s.Messages()) != 0 {
		t.Errorf("messages = %+v", s.Messages())
	}
}

func TestExportHTML(t *testing.T) {
	g := &fakeGraph{answer: "Use **tools**.", contexts: []string{"a | b", "second chunk"}, conf: 0.7}
	s := newSession(t, g)
	if _, err := s.Ask(context.Background(), "what <b>is</b> it?"); err != nil {
		t.Fatal(err)
	}
	g.answer, g.contexts, g.conf = models.NotFoundAnswer, nil, 0
	if _, err := s.Ask(context.Background(), "unrelated"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.ExportHTML(&buf); err != nil {
		t.Fatalf("ExportHTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<h1>Chat session " + s.ID + "</h1>",
		"<strong>tools</strong>",
		"<table>",
		"<td>a | b</td>",
		"0.70",
		"0.00",
		models.NotFoundAnswer,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<b>is</b>") {
		t.Error("raw html from the question was passed through")
	}
}

// slowGraph answers once released, so the history can be read mid-query.
type slowGraph struct {
	fakeGraph
	release chan struct{}
}

func (g *slowGraph) Invoke(ctx context.Context, state models.State) (models.State, error) {
	<-g.release
	return g.fakeGraph.Invoke(ctx, state)
}

func TestExportWhileAsking(t *testing.T) {
	g := &slowGraph{fakeGraph: fakeGraph{answer: "late answer", conf: 0.6}, release: make(chan struct{})}
	s := newSession(t, g)

	done := make(chan error)
	go func() {
		_, err := s.Ask(context.Background(), "still running?")
		done <- err
	}()

	var buf bytes.Buffer
	if err := s.ExportHTML(&buf); err != nil {
		t.Fatal(err)
	}
	close(g.release)
	for i := 0; i < 50; i++ {
		buf.Reset()
		if err := s.ExportHTML(&buf); err != nil {
			t.Fatal(err)
		}
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := len(s.Messages()); n != 2 {
		t.Errorf("messages = %d, want 2", n)
	}
	snapshot := s.Messages()
	snapshot[0].Content = "edited"
	if s.Messages()[0].Content == "edited" {
		t.Error("Messages exposed the internal slice")
	}
}
