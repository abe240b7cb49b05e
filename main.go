package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	api "abdiwave-backend/cmd/api"
	calldomain "abdiwave-backend/internal/call/domain"
	callRepo "abdiwave-backend/internal/call/repository"
	callScheduler "abdiwave-backend/internal/call/scheduler"
	callUsecase "abdiwave-backend/internal/call/usecase"
	chatdomain "abdiwave-backend/internal/chat/domain"
	chatRepo "abdiwave-backend/internal/chat/repository"
	chatUsecase "abdiwave-backend/internal/chat/usecase"
	"abdiwave-backend/internal/events"
	"abdiwave-backend/internal/notification"
	userdomain "abdiwave-backend/internal/user/domain"
	userRepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/agora"
	"abdiwave-backend/pkg/config"
	"abdiwave-backend/pkg/database"
	"abdiwave-backend/pkg/fcm"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{
		FieldMap: log.FieldMap{log.FieldKeyMsg: "message"},
	})
	log.SetLevel(log.InfoLevel)

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&userdomain.User{},
		&userdomain.FCMToken{},
		&calldomain.CallRecord{},
		&calldomain.RingTimeout{},
		&chatdomain.ChatThread{},
		&chatdomain.ChatParticipant{},
		&chatdomain.Message{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize repositories (dependency injection)
	users := userRepo.NewUserRepository(db)
	fcmTokens := userRepo.NewFCMTokenRepository(db)
	calls := callRepo.NewCallRepository(db)
	timeouts := callRepo.NewTimeoutRepository(db)
	chats := chatRepo.NewChatRepository(db)

	// Initialize FCM client (push delivery degrades to a no-op without it)
	var sender notification.Sender
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Warnf("Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			sender = fcmClient
		}
	} else {
		log.Warn("No Firebase credentials configured, push notifications disabled")
	}
	dispatcher := notification.NewDispatcher(sender, fcmTokens)

	// Initialize the store-events bus
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := events.NopPublisher()
	var pubsubClient *pubsub.Client
	if cfg.GoogleProjectID != "" {
		var opts []option.ClientOption
		if cfg.GoogleCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentials))
		}
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GoogleProjectID, opts...)
		if err != nil {
			log.Fatalf("Failed to create pubsub client: %v", err)
		}
		publisher = events.NewPublisher(pubsubClient, cfg.PubSubTopic)
	} else {
		log.Warn("GoogleProjectID not configured, store-events bus disabled")
	}

	// Initialize use cases
	callUC := callUsecase.NewCallUsecase(calls, users, fcmTokens, dispatcher, publisher)
	chatUC := chatUsecase.NewChatUsecase(chats, users, fcmTokens, dispatcher, publisher)
	watcher := callUsecase.NewWatcher(calls, timeouts, fcmTokens, dispatcher, cfg.RingTimeout)

	// Start the ring-timeout sweep
	sweeper := callScheduler.NewRingTimeoutScheduler(timeouts, calls, publisher, cfg.SweepInterval)
	sweeper.Start()

	// Start the event subscriber
	if pubsubClient != nil {
		subscriber := events.NewSubscriber(pubsubClient, cfg.PubSubTopic, events.Handlers{
			OnCallCreated:    watcher.OnCallCreated,
			OnCallUpdated:    watcher.OnCallUpdated,
			OnMessageCreated: chatUC.OnMessageCreated,
		})
		go subscriber.Start(ctx)
	}

	// Initialize HTTP handler
	minter := agora.NewMinter(cfg.AgoraAppID, cfg.AgoraAppCertificate)
	handler := api.NewHandler(callUC, chatUC, fcmTokens, minter, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	go func() {
		log.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Drain on SIGINT/SIGTERM: stop the sweep, stop consuming events, then
	// give in-flight requests a grace period.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	sweeper.Stop()
	cancel()
	if pubsubClient != nil {
		if err := pubsubClient.Close(); err != nil {
			log.Errorf("Error closing pubsub client: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}
