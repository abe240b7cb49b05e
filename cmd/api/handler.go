package api

import (
	"github.com/gin-gonic/gin"

	callUsecase "abdiwave-backend/internal/call/usecase"
	chatUsecase "abdiwave-backend/internal/chat/usecase"
	userRepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/agora"
	"abdiwave-backend/pkg/config"
)

// Handler wires the gin engine with all routes
type Handler struct {
	engine *gin.Engine
}

// NewHandler creates the HTTP handler with all routes registered
func NewHandler(callUC callUsecase.CallUsecase, chatUC chatUsecase.ChatUsecase, fcmRepo userRepo.FCMTokenRepository, minter agora.TokenMinter, cfg *config.Config) *Handler {
	engine := gin.Default()
	SetupRoutes(engine, callUC, chatUC, fcmRepo, minter, cfg)
	return &Handler{engine: engine}
}

// Engine exposes the underlying gin engine for the HTTP server
func (h *Handler) Engine() *gin.Engine {
	return h.engine
}
