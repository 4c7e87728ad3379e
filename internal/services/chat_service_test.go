package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChat(t *testing.T, maxSessions int) *ChatService {
	t.Helper()
	chat, err := NewChatService(maxSessions, 10*time.Millisecond, quietLogger())
	require.NoError(t, err)
	return chat
}

func TestChat_OpenSendsWelcome(t *testing.T) {
	chat := newTestChat(t, 10)

	id, messages := chat.Open()
	require.Len(t, messages, 1)
	assert.Equal(t, models.ChatSenderAgent, messages[0].Sender)
	assert.Equal(t, ChatWelcomeMessage, messages[0].Content)
	assert.Equal(t, id, messages[0].SessionID)
}

func TestChat_SendSchedulesReply(t *testing.T) {
	chat := newTestChat(t, 10)
	id, _ := chat.Open()

	msg, err := chat.Send(id, "  Do you cover weddings in Shillong?  ")
	require.NoError(t, err)
	assert.Equal(t, "Do you cover weddings in Shillong?", msg.Content)
	assert.Equal(t, models.ChatSenderUser, msg.Sender)

	assert.Eventually(t, func() bool {
		messages, err := chat.Messages(id)
		return err == nil && len(messages) == 3 && messages[2].Content == ChatAgentReply
	}, time.Second, 5*time.Millisecond)
}

func TestChat_SendValidation(t *testing.T) {
	chat := newTestChat(t, 10)
	id, _ := chat.Open()

	_, err := chat.Send(id, "   ")
	assert.Equal(t, "empty_message", apperror.From(err).Code)

	_, err = chat.Send(id, strings.Repeat("a", MaxChatMessageLength+1))
	assert.Equal(t, "message_too_long", apperror.From(err).Code)

	_, err = chat.Send(id, strings.Repeat("अ", MaxChatMessageLength))
	assert.NoError(t, err)

	_, err = chat.Send(uuid.New(), "hello")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestChat_Subscribe(t *testing.T) {
	chat := newTestChat(t, 10)
	id, _ := chat.Open()

	ch, cancel, err := chat.Subscribe(id)
	require.NoError(t, err)
	defer cancel()

	_, err = chat.Send(id, "hello")
	require.NoError(t, err)

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", msg.Content)
	case <-time.After(time.Second):
		t.Fatal("user message not delivered")
	}
	select {
	case msg := <-ch:
		assert.Equal(t, ChatAgentReply, msg.Content)
	case <-time.After(time.Second):
		t.Fatal("agent reply not delivered")
	}

	chat.Close(id)
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestChat_EvictionClosesSession(t *testing.T) {
	chat := newTestChat(t, 1)
	first, _ := chat.Open()

	ch, cancel, err := chat.Subscribe(first)
	require.NoError(t, err)
	defer cancel()

	chat.Open()

	_, open := <-ch
	assert.False(t, open)
	_, err = chat.Messages(first)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
