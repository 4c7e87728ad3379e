package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSender identifies who wrote a chat message
type ChatSender string

const (
	ChatSenderUser  ChatSender = "user"
	ChatSenderAgent ChatSender = "agent"
)

// ChatMessage is one entry of a support chat session
type ChatMessage struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Sender    ChatSender `json:"sender"`
	Content   string     `json:"content"`
	SentAt    time.Time  `json:"sent_at"`
}

// ChatMessageRequest is the body of POST /chat/sessions/:id/messages
type ChatMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
