package domain

import (
	"strings"
	"time"
)

type MessageKind string

const (
	KindText     MessageKind = "text"
	KindCommand  MessageKind = "command"
	KindReminder MessageKind = "reminder"
	KindError    MessageKind = "error"
)

type Attachment struct {
	Name        string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
}

func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(a.ContentType, "image/")
}

type Message struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	FromUser   bool        `json:"isUser"`
	Timestamp  time.Time   `json:"timestamp"`
	Kind       MessageKind `json:"type"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation sent to the chat model.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
