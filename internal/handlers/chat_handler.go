package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

const (
	chatWriteWait  = 10 * time.Second
	chatPongWait   = 60 * time.Second
	chatPingPeriod = (chatPongWait * 9) / 10
)

// ChatHandler serves the support chat
type ChatHandler struct {
	chat     *services.ChatService
	upgrader websocket.Upgrader
	logger   *logrus.Logger
}

// NewChatHandler creates a chat handler. allowedOrigins restricts websocket
// upgrades; an empty list accepts any origin.
func NewChatHandler(chat *services.ChatService, allowedOrigins []string, logger *logrus.Logger) *ChatHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return &ChatHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// OpenSession handles POST /api/v1/chat/sessions
func (h *ChatHandler) OpenSession(c *gin.Context) {
	sessionID, messages := h.chat.Open()
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// GetMessages handles GET /api/v1/chat/sessions/:id/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.chat.Messages(sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}

// SendMessage handles POST /api/v1/chat/sessions/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}

	msg, err := h.chat.Send(sessionID, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// CloseSession handles DELETE /api/v1/chat/sessions/:id
func (h *ChatHandler) CloseSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.chat.Close(sessionID)
	c.Status(http.StatusNoContent)
}

// Stream handles GET /api/v1/chat/sessions/:id/ws
// Every new message of the session is pushed as JSON. Text frames from the
// client are sent as user messages.
func (h *ChatHandler) Stream(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	updates, cancel, err := h.chat.Subscribe(sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.WithError(err).Debug("Chat websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithField("session_id", sessionID)
	log.Debug("Chat websocket connected")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(services.MaxChatMessageLength * 4)
		_ = conn.SetReadDeadline(time.Now().Add(chatPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(chatPongWait))
		})
		for {
			var req models.ChatMessageRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("Chat websocket read failed")
				}
				return
			}
			if _, err := h.chat.Send(sessionID, req.Content); err != nil {
				log.WithError(err).Debug("Chat message rejected")
			}
		}
	}()

	ticker := time.NewTicker(chatPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}
