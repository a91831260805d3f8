package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"shopmate/internal/chatapi"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientChat     MessageType = "client_chat"
	TypeClientClear    MessageType = "client_clear"
	TypeClientHistory  MessageType = "client_history"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeHistory        MessageType = "history"
	TypeSessionCleared MessageType = "session_cleared"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientChat carries one outgoing user message.
type ClientChat struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// ClientClear asks for the conversation to be wiped and a fresh session
// started.
type ClientClear struct {
	Type MessageType `json:"type"`
}

// ClientHistory asks for the locally persisted turns of the current session.
type ClientHistory struct {
	Type MessageType `json:"type"`
}

// AssistantReply is the server's answer to one ClientChat.
type AssistantReply struct {
	Type      MessageType       `json:"type"`
	SessionID string            `json:"session_id"`
	Text      string            `json:"text"`
	Rotated   bool              `json:"rotated,omitempty"`
	Products  []chatapi.Product `json:"products,omitempty"`
}

// HistoryTurn is one turn of a History payload.
type HistoryTurn struct {
	Role            string   `json:"role"`
	Content         string   `json:"content"`
	AttachedItemIDs []string `json:"attached_item_ids,omitempty"`
}

type History struct {
	Type      MessageType   `json:"type"`
	SessionID string        `json:"session_id"`
	Turns     []HistoryTurn `json:"turns"`
}

type SessionCleared struct {
	Type         MessageType `json:"type"`
	NewSessionID string      `json:"new_session_id"`
	RemoteFailed bool        `json:"remote_failed,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientChat:
		var msg ClientChat
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid client_chat")
		}
		return msg, nil
	case TypeClientClear:
		var msg ClientClear
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeClientHistory:
		var msg ClientHistory
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
