package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"abdiwave-backend/internal/call/domain"
	"abdiwave-backend/internal/call/usecase"
	"abdiwave-backend/pkg/agora"
	"abdiwave-backend/pkg/apperr"
)

// CallHandler handles call-related HTTP requests
type CallHandler struct {
	callUsecase usecase.CallUsecase
	minter      agora.TokenMinter
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(callUsecase usecase.CallUsecase, minter agora.TokenMinter) *CallHandler {
	return &CallHandler{
		callUsecase: callUsecase,
		minter:      minter,
	}
}

// GenerateTokenRequest represents the request body for minting a media token
type GenerateTokenRequest struct {
	ChannelName             string `json:"channelName"`
	UID                     string `json:"uid"`
	Role                    string `json:"role"`
	ExpirationTimeInSeconds uint32 `json:"expirationTimeInSeconds"`
}

// CreateCallRequest represents the request body for creating a call record
type CreateCallRequest struct {
	CallID         string `json:"callId"`
	ReceiverID     string `json:"receiverId"`
	ChannelID      string `json:"channelId"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Token          string `json:"token"`
	CallerName     string `json:"callerName"`
	CallerPhotoURL string `json:"callerPhotoUrl"`
}

// UpdateStatusRequest represents the request body for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// NotifyRequest represents the request body for the notify entry point
type NotifyRequest struct {
	ReceiverID string           `json:"receiverId"`
	CallData   usecase.CallData `json:"callData"`
}

// GenerateToken mints a media channel token for the authenticated caller
// POST /api/agora/token
func (h *CallHandler) GenerateToken(c *gin.Context) {
	var req GenerateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	if req.ChannelName == "" {
		respondError(c, apperr.InvalidArgument("channel name is required"))
		return
	}
	if req.UID == "" {
		respondError(c, apperr.InvalidArgument("user id is required"))
		return
	}

	role := req.Role
	if role == "" {
		role = "publisher"
	}
	expire := req.ExpirationTimeInSeconds
	if expire == 0 {
		expire = 3600
	}

	// Stringified numeric uid; anything unparseable joins as uid 0
	uidNumber, _ := strconv.ParseUint(req.UID, 10, 32)

	token, err := h.minter.Mint(req.ChannelName, uint32(uidNumber), role, expire)
	if err != nil {
		respondError(c, apperr.Internal("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateCall creates a call record and fans out the create event
// POST /api/calls
func (h *CallHandler) CreateCall(c *gin.Context) {
	callerID := c.GetString("userID")

	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	record, err := h.callUsecase.CreateCall(c.Request.Context(), callerID, usecase.CreateCallParams{
		CallID:         req.CallID,
		ReceiverID:     req.ReceiverID,
		ChannelID:      req.ChannelID,
		Type:           domain.CallType(req.Type),
		Status:         domain.CallStatus(req.Status),
		Token:          req.Token,
		CallerName:     req.CallerName,
		CallerPhotoURL: req.CallerPhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetCall returns one call record
// GET /api/calls/:id
func (h *CallHandler) GetCall(c *gin.Context) {
	record, err := h.callUsecase.GetCall(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateStatus transitions a call's status
// PATCH /api/calls/:id/status
func (h *CallHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	record, err := h.callUsecase.UpdateStatus(c.Request.Context(), c.Param("id"), domain.CallStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Notify rings the receiver's devices for a call on client request
// POST /api/calls/notify
func (h *CallHandler) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}

	result, err := h.callUsecase.NotifyCall(c.Request.Context(), req.ReceiverID, req.CallData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func respondError(c *gin.Context, err error) {
	appErr := apperr.FromError(err)
	c.JSON(apperr.HTTPStatus(appErr.Code), gin.H{"error": appErr})
}
