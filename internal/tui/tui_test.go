package tui

import (
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbot/internal/client"
	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/server"
)

type fakeSender struct {
	sent    []string
	err     error
	replies chan client.Reply
}

func newFakeSender() *fakeSender {
	return &fakeSender{replies: make(chan client.Reply, 8)}
}

func (f *fakeSender) Send(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, text)
	return "1", nil
}

func (f *fakeSender) Replies() <-chan client.Reply { return f.replies }

func newModel(t *testing.T, sender Sender) *Model {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	m := New(sender, game.Identity{ID: "u1", Name: "alice"}, logger, true)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func typeLine(m *Model, text string) tea.Cmd {
	m.input.SetValue(text)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestCommand(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "!hit", Command("hit"))
	assert.Equal(t, "!bet 20", Command("  !bet 20 "))
	assert.Equal(t, "", Command("   "))
}

func TestPlainProfile(t *testing.T) {
	t.Parallel()
	assert.True(t, PlainProfile(termenv.Ascii))
	assert.False(t, PlainProfile(termenv.TrueColor))
}

func TestEnterSendsCommand(t *testing.T) {
	t.Parallel()
	sender := newFakeSender()
	m := newModel(t, sender)

	typeLine(m, "blackjack 20")
	typeLine(m, "")

	assert.Equal(t, []string{"!blackjack 20"}, sender.sent)
	assert.Equal(t, []string{"> !blackjack 20"}, m.Lines())
	assert.Empty(t, m.input.Value())
}

func TestSendFailureIsShown(t *testing.T) {
	t.Parallel()
	sender := newFakeSender()
	sender.err = errors.New("not connected")
	m := newModel(t, sender)

	typeLine(m, "hit")
	require.Len(t, m.Lines(), 2)
	assert.Equal(t, "Could not send: not connected", m.Lines()[1])
}

func TestRepliesUpdateStatus(t *testing.T) {
	t.Parallel()
	sender := newFakeSender()
	m := newModel(t, sender)
	assert.Equal(t, statusIdle, m.Status())

	_, cmd := m.Update(replyMsg{ReplyData: server.ReplyData{
		Text: "The dealer is showing 10, with one card face down. alice your starting hand consists of a 5 and a 7. Your total is 12.",
	}})
	assert.NotNil(t, cmd)
	assert.Equal(t, statusPlaying, m.Status())

	m.Update(replyMsg{ReplyData: server.ReplyData{Text: "The round is over.", RoundOver: true}})
	assert.Equal(t, statusRoundOver, m.Status())

	m.Update(replyMsg{ReplyData: server.ReplyData{Text: "You lose.", RoundOver: true, GameOver: true}})
	assert.Equal(t, statusIdle, m.Status())
	lines := m.Lines()
	assert.Equal(t, gameOverHint, lines[len(lines)-1])

	m.Update(replyMsg{Err: &server.ErrorData{Code: "invalid_message", Message: "user_id is required"}})
	assert.Equal(t, "user_id is required", m.Lines()[len(m.Lines())-1])
}

func TestWaitForReplyDelivers(t *testing.T) {
	t.Parallel()
	sender := newFakeSender()
	m := newModel(t, sender)

	sender.replies <- client.Reply{RequestID: "1", ReplyData: server.ReplyData{Text: "hi"}}
	msg := m.waitForReply()()
	got, ok := msg.(replyMsg)
	require.True(t, ok)
	assert.Equal(t, "hi", got.Text)

	close(sender.replies)
	_, ok = m.waitForReply()().(disconnectedMsg)
	assert.True(t, ok)

	m.Update(disconnectedMsg{})
	assert.Equal(t, statusOffline, m.Status())
}

func TestQuitAndView(t *testing.T) {
	t.Parallel()
	m := newModel(t, newFakeSender())

	view := m.View()
	assert.True(t, strings.HasPrefix(view, "Blackjack | alice | no game"))

	cmd := typeLine(m, "quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
