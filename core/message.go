package core

import (
	"time"

	"github.com/google/uuid"
)

// Message roles used in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a WorkingState's history. After being appended it
// should be treated as immutable; history is append-only per turn.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and UTC timestamp.
func NewMessage(role, content string) Message {
	return Message{ID: NewID(), Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message { return NewMessage(RoleSystem, content) }

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message { return NewMessage(RoleUser, content) }

// NewAssistantMessage creates an assistant-role message authored by the given agent.
func NewAssistantMessage(author, content string) Message {
	m := NewMessage(RoleAssistant, content)
	m.Author = author
	return m
}

// NewID generates a new unique identifier for messages, tasks and artifacts.
func NewID() string { return uuid.NewString() }
