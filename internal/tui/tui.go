// Package tui is the terminal client: a scrolling log of bot replies above
// a command prompt.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/blackjackbot/internal/client"
	"github.com/lox/blackjackbot/internal/game"
)

// Sender is the connection the UI drives. *client.Client satisfies it.
type Sender interface {
	Send(text string) (string, error)
	Replies() <-chan client.Reply
}

type entryKind int

const (
	entryCommand entryKind = iota
	entryReply
	entryRoundOver
	entryError
	entryInfo
)

type entry struct {
	kind entryKind
	text string
}

type replyMsg client.Reply

type disconnectedMsg struct{}

const (
	statusIdle      = "no game"
	statusPlaying   = "in a round"
	statusRoundOver = "round over"
	statusOffline   = "disconnected"

	gameOverHint = "Game over. Type blackjack to play again."
)

// Model is the bubbletea model for the client.
type Model struct {
	sender Sender
	who    game.Identity
	logger *log.Logger

	viewport viewport.Model
	input    textinput.Model

	entries  []entry
	status   string
	plain    bool
	width    int
	height   int
	quitting bool
}

// PlainProfile reports whether a terminal with profile p should get
// unstyled output.
func PlainProfile(p termenv.Profile) bool {
	return p == termenv.Ascii
}

// New returns a model sending as who through sender.
func New(sender Sender, who game.Identity, logger *log.Logger, plain bool) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "blackjack, hit, stay, bet 20, help ..."
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60
	ti.Prompt = "> "
	if !plain {
		ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
		ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	}

	return &Model{
		sender:   sender,
		who:      who,
		logger:   logger.WithPrefix("tui"),
		viewport: vp,
		input:    ti,
		status:   statusIdle,
		plain:    plain,
	}
}

// Init starts the cursor blinking and the reply listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForReply())
}

func (m *Model) waitForReply() tea.Cmd {
	replies := m.sender.Replies()
	return func() tea.Msg {
		reply, ok := <-replies
		if !ok {
			return disconnectedMsg{}
		}
		return replyMsg(reply)
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case replyMsg:
		m.handleReply(client.Reply(msg))
		return m, m.waitForReply()

	case disconnectedMsg:
		m.status = statusOffline
		m.add(entryError, "Disconnected from server.")
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if text == "quit" || text == "/quit" {
				m.quitting = true
				return m, tea.Quit
			}
			m.submit(text)
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Command turns what the user typed into a chat command, adding the
// leading "!" when it was left off.
func Command(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(text, "!") {
		return text
	}
	return "!" + text
}

func (m *Model) submit(text string) {
	command := Command(text)
	if command == "" {
		return
	}
	m.add(entryCommand, "> "+command)
	if _, err := m.sender.Send(command); err != nil {
		m.logger.Debug("Send failed", "error", err)
		m.add(entryError, "Could not send: "+err.Error())
	}
}

func (m *Model) handleReply(reply client.Reply) {
	if reply.Err != nil {
		m.add(entryError, reply.Err.Message)
		return
	}

	switch {
	case reply.GameOver:
		m.add(entryRoundOver, reply.Text)
		m.add(entryInfo, gameOverHint)
		m.status = statusIdle
	case reply.RoundOver:
		m.add(entryRoundOver, reply.Text)
		m.status = statusRoundOver
	default:
		m.add(entryReply, reply.Text)
		if strings.Contains(reply.Text, "Your total is") || strings.Contains(reply.Text, "The dealer is showing") {
			m.status = statusPlaying
		}
	}
}

func (m *Model) add(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
	m.viewport.SetContent(m.renderLog())
	if m.viewport.Height > 0 && m.viewport.Width > 0 {
		m.viewport.GotoBottom()
	}
}

// Info appends a local notice to the log.
func (m *Model) Info(text string) {
	m.add(entryInfo, text)
}

// Lines returns the log without styling.
func (m *Model) Lines() []string {
	lines := make([]string, len(m.entries))
	for i, e := range m.entries {
		lines[i] = e.text
	}
	return lines
}

// Status returns the short game state shown in the header.
func (m *Model) Status() string { return m.status }

func (m *Model) style(kind entryKind) lipgloss.Style {
	if m.plain {
		return lipgloss.NewStyle()
	}
	switch kind {
	case entryCommand:
		return CommandStyle
	case entryRoundOver:
		return RoundOverStyle
	case entryError:
		return ErrorStyle
	case entryInfo:
		return InfoStyle
	default:
		return ReplyStyle
	}
}

func (m *Model) renderLog() string {
	width := m.viewport.Width
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		style := m.style(e.kind)
		if width > 0 {
			style = style.Width(width)
		}
		parts = append(parts, style.Render(e.text))
	}
	return strings.Join(parts, "\n")
}

func (m *Model) frame(input bool) lipgloss.Style {
	if m.plain {
		return lipgloss.NewStyle()
	}
	if input {
		return inputPaneStyle
	}
	return paneStyle
}

// resize fits the viewport between the header and the input pane.
func (m *Model) resize() {
	border := 2
	if m.plain {
		border = 0
	}
	m.viewport.Width = max(m.width-border, 1)
	m.viewport.Height = max(m.height-1-(1+border)-border, 1)
	m.input.Width = max(m.width-border-len(m.input.Prompt)-1, 1)
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m *Model) header() string {
	title := "Blackjack | " + m.who.String() + " | " + m.status
	if m.plain {
		return title
	}
	return HeaderStyle.Render(title)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	logPane := m.frame(false).Render(m.viewport.View())
	inputPane := m.frame(true).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), logPane, inputPane)
}
