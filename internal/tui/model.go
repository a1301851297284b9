package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ebook-rag/internal/chat"
	"ebook-rag/internal/models"
)

// Asker is the TUI-facing subset of a chat session.
type Asker interface {
	Ask(ctx context.Context, query string) (*models.PromptResponse, error)
}

// answerMsg carries the result of a query run off the UI loop.
type answerMsg struct {
	query string
	resp  *models.PromptResponse
	err   error
}

type entry struct {
	query string
	resp  *models.PromptResponse
}

// Model is the Bubble Tea model for the chat front-end.
type Model struct {
	ctx      context.Context
	session  Asker
	title    string
	input    textinput.Model
	viewport viewport.Model
	history  []entry
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model. ctx bounds every query the model runs.
func New(ctx context.Context, session Asker, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the book and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{ctx: ctx, session: session, title: title, input: ti, viewport: vp, status: "Ready."}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // title, status, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.history = append(m.history, entry{query: msg.query, resp: msg.resp})
		m.status = fmt.Sprintf("Answered with confidence %.2f", msg.resp.Confidence)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(q)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(query string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		resp, err := session.Ask(ctx, query)
		return answerMsg{query: query, resp: resp, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(userStyle.Render("You: "+e.query) + "\n")
		b.WriteString(e.resp.Answer + "\n")
		b.WriteString(confidenceStyle.Render(fmt.Sprintf("Confidence: %.2f", e.resp.Confidence)) + "\n")
		for j, c := range e.resp.Contexts {
			b.WriteString(contextStyle.Render(fmt.Sprintf("[%d] %s", j+1, preview(c, 160))) + "\n")
		}
	}
	return b.String()
}

// preview flattens a chunk to one line of at most n runes
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	confidenceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	contextStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var _ Asker = (*chat.Session)(nil)
