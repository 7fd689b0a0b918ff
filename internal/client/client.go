// Package client talks to a blackjack server over its websocket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/server"
)

var ErrNotConnected = errors.New("not connected")

// Reply is one answer from the server. Err is set when the server rejected
// the frame instead of answering it.
type Reply struct {
	RequestID string
	server.ReplyData
	Err *server.ErrorData
}

// Client sends chat commands as one identity.
type Client struct {
	serverURL string
	who       game.Identity
	token     string
	conn      *websocket.Conn
	send      chan *server.Message
	replies   chan Reply
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	seq       atomic.Uint64
	closeOnce sync.Once
}

// New returns a client that will speak as who.
func New(serverURL string, who game.Identity, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		who:       who,
		send:      make(chan *server.Message, 64),
		replies:   make(chan Reply, 64),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetToken sets the bridge token presented when connecting.
func (c *Client) SetToken(token string) {
	c.token = token
}

// WebSocketURL converts an http(s) or ws(s) base URL into the /ws endpoint.
func WebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Connect dials the server.
func (c *Client) Connect(ctx context.Context) error {
	target, err := WebSocketURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", target)

	var header http.Header
	if c.token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + c.token}}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Close disconnects from the server. Replies is closed once the read loop
// has stopped.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.connected = false
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Identity returns the identity commands are sent as.
func (c *Client) Identity() game.Identity { return c.who }

// Replies delivers answers from the server in arrival order.
func (c *Client) Replies() <-chan Reply { return c.replies }

// Send queues text as a chat command and returns its request ID.
func (c *Client) Send(text string) (string, error) {
	if !c.IsConnected() {
		return "", ErrNotConnected
	}

	msg, err := server.NewMessage(server.MessageTypeCommand, server.CommandData{
		UserID:   c.who.ID,
		UserName: c.who.Name,
		Text:     text,
	})
	if err != nil {
		return "", err
	}
	msg.RequestID = strconv.FormatUint(c.seq.Add(1), 10)

	select {
	case c.send <- msg:
		return msg.RequestID, nil
	case <-c.ctx.Done():
		return "", ErrNotConnected
	default:
		return "", fmt.Errorf("send buffer full")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.replies)
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if c.ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		reply, ok := c.decode(&msg)
		if !ok {
			continue
		}
		select {
		case c.replies <- reply:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) decode(msg *server.Message) (Reply, bool) {
	reply := Reply{RequestID: msg.RequestID}
	switch msg.Type {
	case server.MessageTypeReply:
		if err := json.Unmarshal(msg.Data, &reply.ReplyData); err != nil {
			c.logger.Warn("Malformed reply", "error", err)
			return reply, false
		}
	case server.MessageTypeError:
		reply.Err = &server.ErrorData{}
		if err := json.Unmarshal(msg.Data, reply.Err); err != nil {
			c.logger.Warn("Malformed error", "error", err)
			return reply, false
		}
	default:
		c.logger.Debug("Ignoring message", "type", msg.Type)
		return reply, false
	}
	return reply, true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
