// Package tui is the terminal chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askpdf/internal/conversation"
	"askpdf/internal/domain"
	"askpdf/internal/session"
)

// SessionPort is the TUI-facing subset of the session.
type SessionPort interface {
	Process(ctx context.Context, docs []domain.Document) (*session.Report, error)
	Ask(ctx context.Context, question string) (conversation.Answer, []domain.Turn, error)
	History() []domain.Turn
}

// LoadFunc reads the documents to process.
type LoadFunc func() ([]domain.Document, error)

type processedMsg struct {
	report *session.Report
	err    error
}

type docsChangedMsg struct{}

type answeredMsg struct {
	question string
	answer   conversation.Answer
	turns    []domain.Turn
	err      error
}

// Model is the Bubble Tea model for the chat.
// Only one job runs at a time, so the session is never used concurrently.
type Model struct {
	ctx      context.Context
	jobs     *jobs
	session  SessionPort
	load     LoadFunc
	changes  <-chan struct{}
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns   []domain.Turn
	sources []domain.SearchResult
	lastAsk string
	pending string
	summary string
	status  string
	errText string
	loaded  bool
	stale   bool
	busy    bool
	cancel  context.CancelFunc
	ready   bool
	width   int
}

// New creates the chat model. Documents are processed as soon as it starts,
// and again whenever changes delivers a signal; changes may be nil.
func New(ctx context.Context, s SessionPort, load LoadFunc, changes <-chan struct{}) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		jobs:     &jobs{cancel: cancel},
		session:  s,
		load:     load,
		changes:  changes,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Processing your documents...",
		busy:     true,
	}
}

// Stop cancels the running job and waits for it to return. No session call
// starts afterwards, so the session may be closed once Stop returns.
func (m Model) Stop() {
	m.jobs.stop()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.process(), waitForChange(m.changes))
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return docsChangedMsg{}
	}
}

// reprocess starts a pending reprocess once the current job is done.
func (m *Model) reprocess() tea.Cmd {
	if !m.stale || m.busy {
		return nil
	}
	m.stale = false
	m.busy = true
	m.status = "Documents changed, processing again..."
	return m.process()
}

func (m Model) process() tea.Cmd {
	s, load, ctx, jobs := m.session, m.load, m.ctx, m.jobs
	return func() tea.Msg {
		if !jobs.start() {
			return processedMsg{err: context.Canceled}
		}
		defer jobs.done()
		docs, err := load()
		if err != nil {
			return processedMsg{err: err}
		}
		report, err := s.Process(ctx, docs)
		return processedMsg{report: report, err: err}
	}
}

func (m Model) ask(ctx context.Context, question string) tea.Cmd {
	s, jobs := m.session, m.jobs
	return func() tea.Msg {
		if !jobs.start() {
			return answeredMsg{question: question, err: context.Canceled}
		}
		defer jobs.done()
		ans, turns, err := s.Ask(ctx, question)
		return answeredMsg{question: question, answer: ans, turns: turns, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// header, summary, status, and the input line
		reserved := 3 + qh + 1
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case docsChangedMsg:
		m.stale = true
		cmd := m.reprocess()
		return m, tea.Batch(cmd, waitForChange(m.changes))
	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.setError(msg.err)
			if m.loaded {
				m.status = "Previous documents are still loaded."
			} else {
				m.status = "Press ctrl+r to try again."
			}
			m.refresh()
			cmd := m.reprocess()
			return m, cmd
		}
		m.loaded = true
		m.errText = ""
		m.turns = m.session.History()
		m.sources = nil
		m.summary = msg.report.Summary
		m.status = fmt.Sprintf("Ready: %d pages, %d passages in %s. Ask away.",
			msg.report.Stats.Pages, msg.report.Passages, msg.report.Elapsed.Round(time.Millisecond))
		m.refresh()
		cmd := m.reprocess()
		return m, cmd
	case answeredMsg:
		m.busy = false
		m.pending = ""
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil {
			m.setError(msg.err)
			m.status = ""
			if msg.turns != nil {
				m.turns = msg.turns
			}
			m.refresh()
			cmd := m.reprocess()
			return m, cmd
		}
		m.errText = ""
		m.turns = msg.turns
		m.sources = msg.answer.Sources
		m.lastAsk = msg.question
		m.status = fmt.Sprintf("Answered from %d passages.", len(msg.answer.Sources))
		m.refresh()
		cmd := m.reprocess()
		return m, cmd
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.jobs.cancel()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.cancel != nil {
				m.cancel()
				m.status = "Canceling..."
			}
			return m, nil
		case tea.KeyCtrlR:
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.stale = false
			m.errText = ""
			m.status = "Processing your documents..."
			return m, m.process()
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			ctx, cancel := context.WithCancel(m.ctx)
			m.cancel = cancel
			m.busy = true
			m.pending = q
			m.errText = ""
			m.status = "Thinking..."
			m.input.SetValue("")
			m.refresh()
			return m, m.ask(ctx, q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) setError(err error) {
	cat := domain.Categorize(err)
	switch cat {
	case domain.CategoryDocument, domain.CategoryGeneric:
		m.errText = fmt.Sprintf("%s\n%v", cat.Hint(), err)
	default:
		m.errText = cat.Hint()
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Ask PDF")
	summary := summaryStyle.Width(max(20, m.width)).Render(m.summary)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + chat + "\n" + input + "\n" + status
}

func (m Model) renderChat() string {
	width := max(10, m.viewport.Width-2)
	var blocks []string
	if len(m.turns) == 0 && m.pending == "" {
		blocks = append(blocks, faintStyle.Render("No conversation yet."))
	}
	for _, t := range m.turns {
		blocks = append(blocks, renderTurn(t, width))
	}
	if m.pending != "" {
		blocks = append(blocks, renderTurn(domain.Turn{Role: domain.RoleUser, Content: m.pending}, width))
	}
	if len(m.sources) > 0 && m.pending == "" {
		top := m.sources[0]
		line := fmt.Sprintf("source: passage %d (score %.3f) %q", top.Passage.Index+1, top.Score,
			bestSentence(top.Passage.Text, m.lastAsk))
		blocks = append(blocks, faintStyle.Width(width).Render(line))
	}
	if m.errText != "" {
		blocks = append(blocks, errorStyle.Width(width).Render(m.errText))
	}
	return strings.Join(blocks, "\n")
}

func renderTurn(t domain.Turn, width int) string {
	switch t.Role {
	case domain.RoleUser:
		return userStyle.Width(width).Render("You: " + t.Content)
	case domain.RoleAssistant:
		return botStyle.Width(width).Render("Bot: " + t.Content)
	default:
		return faintStyle.Width(width).Render(t.Content)
	}
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	chatBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle     = lipgloss.NewStyle().Background(lipgloss.Color("#2b313e")).Foreground(lipgloss.Color("#ffffff")).Padding(0, 1).MarginBottom(1)
	botStyle      = lipgloss.NewStyle().Background(lipgloss.Color("#475063")).Foreground(lipgloss.Color("#ffffff")).Padding(0, 1).MarginBottom(1)
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
