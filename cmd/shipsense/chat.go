// This file implements the interactive chat interface using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"shipsense/internal/orchestrator"
	"shipsense/internal/session"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// chatModel is the main model for the interactive chat interface.
type chatModel struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	history   []chatMessage
	isLoading bool
	err       error
	width     int
	height    int
	ready     bool

	sessionID string
	orch      *orchestrator.Orchestrator
	cleanup   func()
}

type chatMessage struct {
	role    string // "user" or "assistant"
	content string
	chart   string
	asks    bool // assistant asked a clarification question
	time    time.Time
}

// Messages for tea updates.
type (
	turnMsg  *session.Turn
	errorMsg error
)

func initChat(orch *orchestrator.Orchestrator, cleanup func(), sessionID string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about ship performance... (Enter to send, Ctrl+C to exit)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.SetContent(welcomeText())

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return chatModel{
		textinput: ti,
		viewport:  vp,
		spinner:   sp,
		renderer:  renderer,
		history:   []chatMessage{},
		sessionID: sessionID,
		orch:      orch,
		cleanup:   cleanup,
	}
}

func welcomeText() string {
	return strings.Join([]string{
		"Welcome to shipsense.",
		"",
		"Try:",
		`  "show me the speed for the last week"`,
		`  "what was the average fuel consumption yesterday?"`,
		`  "compare speed and fuel for the last 3 days"`,
		`  "list the available ships"`,
		"",
	}, "\n")
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m chatModel) submitTurn(utterance string) tea.Cmd {
	orch, sessionID := m.orch, m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		turn, err := orch.SubmitTurn(ctx, sessionID, utterance)
		if err != nil {
			return errorMsg(err)
		}
		return turnMsg(turn)
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.cleanup != nil {
				m.cleanup()
			}
			return m, tea.Quit

		case tea.KeyEnter:
			utterance := strings.TrimSpace(m.textinput.Value())
			if utterance == "" || m.isLoading {
				break
			}
			m.history = append(m.history, chatMessage{
				role:    "user",
				content: utterance,
				time:    time.Now(),
			})
			m.textinput.Reset()
			m.isLoading = true
			m.err = nil
			m.refreshViewport()
			return m, tea.Batch(m.submitTurn(utterance), m.spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = msg.Width - 4
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.ready = true
		m.refreshViewport()

	case turnMsg:
		m.isLoading = false
		turn := (*session.Turn)(msg)
		entry := chatMessage{
			role:    "assistant",
			content: turn.Response,
			asks:    turn.NeedsClarification(),
			time:    time.Now(),
		}
		if turn.Chart != nil {
			entry.chart = renderChart(turn.Chart, m.chartWidth())
		}
		m.history = append(m.history, entry)
		m.refreshViewport()

	case errorMsg:
		m.isLoading = false
		m.err = msg
		m.refreshViewport()

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
		}
	}

	m.textinput, tiCmd = m.textinput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *chatModel) chartWidth() int {
	if m.width > 8 {
		return m.width - 8
	}
	return 72
}

func (m *chatModel) refreshViewport() {
	var b strings.Builder
	b.WriteString(welcomeText())

	for _, msg := range m.history {
		switch msg.role {
		case "user":
			b.WriteString(userStyle.Render("you ❯ "))
			b.WriteString(msg.content)
		default:
			b.WriteString(assistantStyle.Render("shipsense ❯ "))
			content := msg.content
			if m.renderer != nil && !msg.asks {
				if rendered, err := m.renderer.Render(content); err == nil {
					content = strings.TrimSpace(rendered)
				}
			}
			if msg.asks {
				content = questionStyle.Render(content)
			}
			b.WriteString(content)
			if msg.chart != "" {
				b.WriteString("\n\n")
				b.WriteString(msg.chart)
			}
		}
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Starting shipsense..."
	}

	status := helpStyle.Render("Enter to send · Ctrl+C to exit")
	if m.isLoading {
		status = m.spinner.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.textinput.View(), status)
}

// runInteractiveChat starts the bubbletea chat UI.
func runInteractiveChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, cleanup, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		initChat(orch, cleanup, sessionID),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		cleanup()
		return fmt.Errorf("chat interface failed: %w", err)
	}
	cleanup()
	return nil
}
