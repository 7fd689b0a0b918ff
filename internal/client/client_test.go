package client

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/router"
	"github.com/lox/blackjackbot/internal/server"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func startServer(t *testing.T) string {
	t.Helper()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	rt := router.New(bank, router.NewRegistry(quartz.NewMock(t), 0, nil), router.Options{})
	srv := server.NewServer(rt, bank, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return ts.URL
}

func next(t *testing.T, c *Client) Reply {
	t.Helper()
	select {
	case reply, ok := <-c.Replies():
		require.True(t, ok, "replies closed")
		return reply
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
		return Reply{}
	}
}

func TestWebSocketURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://bot.example.com/", want: "wss://bot.example.com/ws"},
		{in: "ws://host/prefix", want: "ws://host/prefix/ws"},
		{in: "ftp://host", wantErr: true},
	}
	for _, tt := range tests {
		got, err := WebSocketURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSendReceivesReplies(t *testing.T) {
	t.Parallel()
	url := startServer(t)

	c := New(url, game.Identity{ID: "u1", Name: "alice"}, quietLogger())
	require.NoError(t, c.Connect(context.Background()))
	defer func() { _ = c.Close() }()
	assert.True(t, c.IsConnected())

	id, err := c.Send("!register")
	require.NoError(t, err)
	reply := next(t, c)
	assert.Equal(t, id, reply.RequestID)
	assert.Nil(t, reply.Err)
	assert.Equal(t, "Successfully registered. You have 300 bucks, alice.", reply.Text)

	second, err := c.Send("!balance")
	require.NoError(t, err)
	assert.NotEqual(t, id, second)
	reply = next(t, c)
	assert.Equal(t, "alice's balance is 300 bucks.", reply.Text)
}

func TestSendBeforeConnect(t *testing.T) {
	t.Parallel()
	c := New("http://localhost:1", game.Identity{ID: "u1"}, quietLogger())
	_, err := c.Send("!hit")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCloseEndsReplies(t *testing.T) {
	t.Parallel()
	url := startServer(t)

	c := New(url, game.Identity{ID: "u1"}, quietLogger())
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.Replies():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("replies never closed")
	}
	assert.False(t, c.IsConnected())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file with defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "client.hcl")
		require.NoError(t, os.WriteFile(path, []byte(`
server {
  url = "https://bot.example.com"
}
player {
  id   = "1234"
  name = "alice"
}
ui {}
`), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "https://bot.example.com", cfg.Server.URL)
		assert.Equal(t, 10*time.Second, cfg.Timeout())
		assert.Equal(t, "1234", cfg.Player.ID)
		assert.Equal(t, "warn", cfg.UI.LogLevel)
		require.NoError(t, cfg.Validate())
	})

	t.Run("validate", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.ErrorContains(t, cfg.Validate(), "player id")
		cfg.Player.ID = "x"
		cfg.UI.LogLevel = "loud"
		assert.ErrorContains(t, cfg.Validate(), "log level")
	})
}
