package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"abdiwave-backend/internal/chat/domain"
	"abdiwave-backend/internal/chat/usecase"
	"abdiwave-backend/pkg/apperr"
)

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatUsecase usecase.ChatUsecase
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatUsecase usecase.ChatUsecase) *ChatHandler {
	return &ChatHandler{chatUsecase: chatUsecase}
}

// CreateThreadRequest represents the request body for opening a chat
type CreateThreadRequest struct {
	ParticipantID string `json:"participantId"`
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Content  string `json:"content"`
	Type     string `json:"type"`
	MediaURL string `json:"mediaUrl"`
}

// MuteRequest represents the request body for muting a chat
type MuteRequest struct {
	Muted bool `json:"muted"`
}

// CreateThread opens a chat with another user
// POST /api/chats
func (h *ChatHandler) CreateThread(c *gin.Context) {
	userID := c.GetString("userID")

	var req CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	thread, err := h.chatUsecase.CreateThread(c.Request.Context(), userID, req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// SendMessage stores a message and fans out the message-created event
// POST /api/chats/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	msg, err := h.chatUsecase.SendMessage(c.Request.Context(), c.Param("id"), userID,
		req.Content, domain.MessageType(req.Type), req.MediaURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// TouchActive marks the caller as actively viewing the chat
// POST /api/chats/:id/active
func (h *ChatHandler) TouchActive(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.chatUsecase.TouchActive(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetMuted toggles notification muting for the caller on this chat
// PUT /api/chats/:id/mute
func (h *ChatHandler) SetMuted(c *gin.Context) {
	userID := c.GetString("userID")

	var req MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	if err := h.chatUsecase.SetMuted(c.Request.Context(), c.Param("id"), userID, req.Muted); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondError(c *gin.Context, err error) {
	appErr := apperr.FromError(err)
	c.JSON(apperr.HTTPStatus(appErr.Code), gin.H{"error": appErr})
}
