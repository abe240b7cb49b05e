package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/apperr"
)

// UserHandler handles device-token registration requests
type UserHandler struct {
	fcmRepo repository.FCMTokenRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(fcmRepo repository.FCMTokenRepository) *UserHandler {
	return &UserHandler{fcmRepo: fcmRepo}
}

// RegisterTokenRequest represents the request body for registering a device token
type RegisterTokenRequest struct {
	Token      string `json:"token"`
	DeviceInfo string `json:"deviceInfo"`
}

// RegisterFCMToken adds a device token to the caller's token set
// POST /api/fcm/register
func (h *UserHandler) RegisterFCMToken(c *gin.Context) {
	userID := c.GetString("userID")

	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidArgument(err.Error()))
		return
	}
	if req.Token == "" {
		respondError(c, apperr.InvalidArgument("token is required"))
		return
	}

	if err := h.fcmRepo.SaveToken(c.Request.Context(), userID, req.Token, req.DeviceInfo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnregisterFCMToken removes a device token from the caller's token set
// DELETE /api/fcm/:token
func (h *UserHandler) UnregisterFCMToken(c *gin.Context) {
	userID := c.GetString("userID")

	token := c.Param("token")
	if token == "" {
		respondError(c, apperr.InvalidArgument("token is required"))
		return
	}

	if err := h.fcmRepo.RemoveTokens(c.Request.Context(), userID, []string{token}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func respondError(c *gin.Context, err error) {
	appErr := apperr.FromError(err)
	c.JSON(apperr.HTTPStatus(appErr.Code), gin.H{"error": appErr})
}
