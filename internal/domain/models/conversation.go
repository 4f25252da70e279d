package models

import (
	"encoding/json"
	"time"
)

// Role identifies who authored a turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation.
// Timestamp is set only when the turn is persisted.
type Turn struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewStoredTurn creates a turn stamped with the given persistence time
func NewStoredTurn(role Role, content string, at time.Time) Turn {
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// MessageLog is the persisted message blob of a conversation.
// Serialized as {"messages": [...]}.
type MessageLog struct {
	Messages []Turn `json:"messages"`
}

// MarshalJSON always emits a list, never null
func (l MessageLog) MarshalJSON() ([]byte, error) {
	messages := l.Messages
	if messages == nil {
		messages = []Turn{}
	}
	return json.Marshal(struct {
		Messages []Turn `json:"messages"`
	}{Messages: messages})
}

// Len returns the number of stored turns
func (l MessageLog) Len() int {
	return len(l.Messages)
}

// Conversation is the named, per-user ordered log of turns.
// (UserID, Name) is unique.
type Conversation struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Messages  MessageLog `json:"messages" db:"messages"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// DecodeMessageLog parses a stored blob. Empty or null blobs yield an empty log.
func DecodeMessageLog(data []byte) (MessageLog, error) {
	var log MessageLog
	if len(data) == 0 || string(data) == "null" {
		return MessageLog{Messages: []Turn{}}, nil
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return MessageLog{}, err
	}
	if log.Messages == nil {
		log.Messages = []Turn{}
	}
	return log, nil
}
