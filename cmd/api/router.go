package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authDelivery "abdiwave-backend/internal/auth/delivery"
	callDelivery "abdiwave-backend/internal/call/delivery"
	callUsecase "abdiwave-backend/internal/call/usecase"
	chatDelivery "abdiwave-backend/internal/chat/delivery"
	chatUsecase "abdiwave-backend/internal/chat/usecase"
	userDelivery "abdiwave-backend/internal/user/delivery"
	userRepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/agora"
	"abdiwave-backend/pkg/config"
)

func SetupRoutes(r *gin.Engine, callUC callUsecase.CallUsecase, chatUC chatUsecase.ChatUsecase, fcmRepo userRepo.FCMTokenRepository, minter agora.TokenMinter, cfg *config.Config) {
	callHandler := callDelivery.NewCallHandler(callUC, minter)
	chatHandler := chatDelivery.NewChatHandler(chatUC)
	userHandler := userDelivery.NewUserHandler(fcmRepo)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Media token minting (protected)
		agoraGroup := api.Group("/agora")
		agoraGroup.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			agoraGroup.POST("/token", callHandler.GenerateToken)
		}

		// Call routes (protected)
		calls := api.Group("/calls")
		calls.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			calls.POST("", callHandler.CreateCall)
			calls.POST("/notify", callHandler.Notify)
			calls.GET("/:id", callHandler.GetCall)
			calls.PATCH("/:id/status", callHandler.UpdateStatus)
		}

		// Chat routes (protected)
		chats := api.Group("/chats")
		chats.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			chats.POST("", chatHandler.CreateThread)
			chats.POST("/:id/messages", chatHandler.SendMessage)
			chats.POST("/:id/active", chatHandler.TouchActive)
			chats.PUT("/:id/mute", chatHandler.SetMuted)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			fcm.POST("/register", userHandler.RegisterFCMToken)
			fcm.DELETE("/:token", userHandler.UnregisterFCMToken)
		}
	}
}
