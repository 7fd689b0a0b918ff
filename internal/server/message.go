package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies the payload carried by a Message.
type MessageType string

const (
	// Client to server
	MessageTypeCommand MessageType = "command"

	// Server to client
	MessageTypeReply MessageType = "reply"
	MessageTypeError MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every frame on the websocket.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// CommandData is one chat line typed by a user.
type CommandData struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// ReplyData is the bot's answer to a CommandData.
type ReplyData struct {
	Text      string `json:"text"`
	RoundOver bool   `json:"round_over"`
	GameOver  bool   `json:"game_over"`
}

// ErrorData reports a malformed frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
