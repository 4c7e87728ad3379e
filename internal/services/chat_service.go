package services

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/sirupsen/logrus"
)

const (
	ChatWelcomeMessage = "Welcome to One Horn Experience! How can we help you today?"
	ChatAgentReply     = "Thank you for your message. One of our event specialists will be with you shortly. In the meantime, feel free to browse our packages or check out our portfolio."

	MaxChatMessageLength = 2000

	subscriberBuffer = 16
)

type chatSession struct {
	id uuid.UUID

	mu          sync.Mutex
	messages    []models.ChatMessage
	subscribers map[chan models.ChatMessage]struct{}
	closed      bool
}

// append stores msg and fans it out. Slow subscribers miss messages rather than block.
func (cs *chatSession) append(msg models.ChatMessage) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return false
	}
	cs.messages = append(cs.messages, msg)
	for ch := range cs.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	return true
}

func (cs *chatSession) close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	cs.closed = true
	for ch := range cs.subscribers {
		close(ch)
	}
	cs.subscribers = nil
}

// ChatService keeps ephemeral support chat sessions in a bounded LRU.
// Evicted sessions close their subscribers.
type ChatService struct {
	sessions *lru.Cache[uuid.UUID, *chatSession]
	delay    time.Duration
	logger   *logrus.Logger
}

// NewChatService creates a chat service holding at most maxSessions sessions
func NewChatService(maxSessions int, responderDelay time.Duration, logger *logrus.Logger) (*ChatService, error) {
	sessions, err := lru.NewWithEvict[uuid.UUID, *chatSession](maxSessions, func(_ uuid.UUID, cs *chatSession) {
		cs.close()
	})
	if err != nil {
		return nil, fmt.Errorf("create chat session cache: %w", err)
	}
	return &ChatService{sessions: sessions, delay: responderDelay, logger: logger}, nil
}

// Open starts a session with the welcome message
func (s *ChatService) Open() (uuid.UUID, []models.ChatMessage) {
	cs := &chatSession{
		id:          uuid.New(),
		subscribers: make(map[chan models.ChatMessage]struct{}),
	}
	cs.append(newChatMessage(cs.id, models.ChatSenderAgent, ChatWelcomeMessage))
	s.sessions.Add(cs.id, cs)

	s.logger.WithField("session_id", cs.id).Debug("Chat session opened")
	return cs.id, cs.snapshot()
}

// Send appends a user message and schedules the agent reply
func (s *ChatService) Send(sessionID uuid.UUID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Validation("empty_message", "message cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxChatMessageLength {
		return nil, apperror.Validation("message_too_long",
			fmt.Sprintf("message must be at most %d characters", MaxChatMessageLength))
	}

	cs, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperror.NotFound("chat session")
	}

	msg := newChatMessage(sessionID, models.ChatSenderUser, content)
	if !cs.append(msg) {
		return nil, apperror.NotFound("chat session")
	}

	time.AfterFunc(s.delay, func() {
		cs.append(newChatMessage(sessionID, models.ChatSenderAgent, ChatAgentReply))
	})
	return &msg, nil
}

// Messages returns the session transcript
func (s *ChatService) Messages(sessionID uuid.UUID) ([]models.ChatMessage, error) {
	cs, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, apperror.NotFound("chat session")
	}
	return cs.snapshot(), nil
}

// Subscribe returns a channel receiving every new message of the session.
// The channel is closed when the session ends; call cancel to stop early.
func (s *ChatService) Subscribe(sessionID uuid.UUID) (<-chan models.ChatMessage, func(), error) {
	cs, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, apperror.NotFound("chat session")
	}

	ch := make(chan models.ChatMessage, subscriberBuffer)
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil, nil, apperror.NotFound("chat session")
	}
	cs.subscribers[ch] = struct{}{}
	cs.mu.Unlock()

	cancel := func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		if _, ok := cs.subscribers[ch]; ok {
			delete(cs.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Close ends a session
func (s *ChatService) Close(sessionID uuid.UUID) {
	s.sessions.Remove(sessionID)
}

func (cs *chatSession) snapshot() []models.ChatMessage {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]models.ChatMessage(nil), cs.messages...)
}

func newChatMessage(sessionID uuid.UUID, sender models.ChatSender, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		SentAt:    time.Now().UTC(),
	}
}
