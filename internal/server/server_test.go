package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbot/internal/auth"
	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/router"
	"github.com/lox/blackjackbot/internal/shoe"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestServer(t *testing.T, stack ...int) (*Server, *httptest.Server, *ledger.Memory) {
	t.Helper()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	opts := router.Options{}
	if len(stack) > 0 {
		opts.GameOptions = func() []game.Option {
			return []game.Option{game.WithShoe(shoe.NewStacked(stack...))}
		}
	}
	rt := router.New(bank, router.NewRegistry(quartz.NewMock(t), 0, nil), opts)
	srv := NewServer(rt, bank, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, ts, bank
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, requestID, userID, text string) {
	t.Helper()
	msg, err := NewMessage(MessageTypeCommand, CommandData{UserID: userID, UserName: userID, Text: text})
	require.NoError(t, err)
	msg.RequestID = requestID
	require.NoError(t, conn.WriteJSON(msg))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readReply(t *testing.T, conn *websocket.Conn) (Message, ReplyData) {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeReply, msg.Type, "payload: %s", msg.Data)
	var data ReplyData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return msg, data
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv := NewServer(nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestLeaderboardEndpoint(t *testing.T) {
	t.Parallel()
	_, ts, bank := newTestServer(t)
	ctx := context.Background()

	_, _, err := bank.Register(ctx, "alice", "Alice")
	require.NoError(t, err)
	_, err = bank.Adjust(ctx, "alice", 50)
	require.NoError(t, err)
	_, _, err = bank.Register(ctx, "bob", "Bob")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/leaderboard?limit=1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var accounts []ledger.Account
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accounts))
	assert.Equal(t, []ledger.Account{{ID: "alice", Name: "Alice", Balance: 350}}, accounts)

	t.Run("bad limit", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/leaderboard?limit=lots")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("post rejected", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/leaderboard", "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestLeaderboardWithoutBank(t *testing.T) {
	t.Parallel()
	srv := NewServer(nil, nil, testLogger())

	w := httptest.NewRecorder()
	srv.handleLeaderboard(w, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommandRoundTrip(t *testing.T) {
	t.Parallel()
	_, ts, bank := newTestServer(t, 10, 10, 5, 7, 7)
	conn := dial(t, ts)

	sendCommand(t, conn, "r1", "alice", "!blackjack 25")
	msg, reply := readReply(t, conn)
	assert.Equal(t, "r1", msg.RequestID)
	assert.Contains(t, reply.Text, "Your total is 12.")
	assert.False(t, reply.RoundOver)

	sendCommand(t, conn, "r2", "alice", "!hit")
	_, reply = readReply(t, conn)
	assert.Contains(t, reply.Text, "bringing your total to 19")

	sendCommand(t, conn, "r3", "alice", "!stay")
	msg, reply = readReply(t, conn)
	assert.Equal(t, "r3", msg.RequestID)
	assert.True(t, reply.RoundOver)
	assert.True(t, reply.GameOver)

	bal, err := bank.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(275), bal)
}

func TestChatterGetsNoReply(t *testing.T) {
	t.Parallel()
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)

	sendCommand(t, conn, "chat", "alice", "good morning everyone")
	sendCommand(t, conn, "bal", "alice", "!balance")

	msg, reply := readReply(t, conn)
	assert.Equal(t, "bal", msg.RequestID)
	assert.Contains(t, reply.Text, "300")
}

func TestMalformedFrames(t *testing.T) {
	t.Parallel()
	_, ts, _ := newTestServer(t)
	conn := dial(t, ts)

	tests := []struct {
		name string
		msg  Message
		code string
	}{
		{
			name: "unknown type",
			msg:  Message{Type: "dance", Data: json.RawMessage(`{}`), RequestID: "a"},
			code: "unknown_message_type",
		},
		{
			name: "bad payload",
			msg:  Message{Type: MessageTypeCommand, Data: json.RawMessage(`"!hit"`), RequestID: "b"},
			code: "invalid_message",
		},
		{
			name: "missing user",
			msg:  Message{Type: MessageTypeCommand, Data: json.RawMessage(`{"text":"!hit"}`), RequestID: "c"},
			code: "invalid_message",
		},
	}

	for _, tt := range tests {
		require.NoError(t, conn.WriteJSON(tt.msg), tt.name)
		got := readMessage(t, conn)
		require.Equal(t, MessageTypeError, got.Type, tt.name)
		assert.Equal(t, tt.msg.RequestID, got.RequestID, tt.name)

		var data ErrorData
		require.NoError(t, json.Unmarshal(got.Data, &data), tt.name)
		assert.Equal(t, tt.code, data.Code, tt.name)
	}
}

func TestConnectionsAreTracked(t *testing.T) {
	t.Parallel()
	srv, ts, _ := newTestServer(t)

	conn := dial(t, ts)
	sendCommand(t, conn, "r", "alice", "!balance")
	readReply(t, conn)
	assert.Equal(t, 1, srv.ConnectionCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.ConnectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestStopRefusesNewConnections(t *testing.T) {
	t.Parallel()
	srv, ts, _ := newTestServer(t)
	srv.Stop()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocketRequiresToken(t *testing.T) {
	t.Parallel()
	srv, ts, _ := newTestServer(t)
	srv.SetValidator(auth.NewStaticValidator(map[string]string{"s3cret": "irc"}))
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{}
	header.Set("Authorization", "Bearer s3cret")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	sendCommand(t, conn, "r", "alice", "!balance")
	_, reply := readReply(t, conn)
	assert.Contains(t, reply.Text, "300")
}
