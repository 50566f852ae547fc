package domain

import "time"

// MessageRole tags who authored a task message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleAgent     MessageRole = "agent"
	RoleSystem    MessageRole = "system"
)

// TaskMessage is one turn in a task's conversation record. Assistant
// content is a serialized Envelope; other roles carry plain text.
type TaskMessage struct {
	MessageID string      `json:"message_id"`
	TaskID    string      `json:"task_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	ReplyToID string      `json:"reply_to_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
