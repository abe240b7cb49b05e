package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"abdiwave-backend/internal/chat/domain"
	"abdiwave-backend/internal/chat/repository"
	"abdiwave-backend/internal/events"
	"abdiwave-backend/internal/notification"
	userrepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/apperr"
	"abdiwave-backend/pkg/fcm"
)

// A recipient seen in the thread within this window is watching the screen
// already; pushing a notification at them would just be noise.
const activeWindow = 30 * time.Second

// Dispatcher fans a payload out to a user's token set
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, tokens []string, payload *fcm.Payload) (*fcm.SendResult, error)
}

// ChatUsecase exposes the chat operations behind the gateway plus the
// message-created notification handler.
type ChatUsecase interface {
	CreateThread(ctx context.Context, creatorID, otherID string) (*domain.ChatThread, error)
	SendMessage(ctx context.Context, chatID, senderID, content string, msgType domain.MessageType, mediaURL string) (*domain.Message, error)
	TouchActive(ctx context.Context, chatID, userID string) error
	SetMuted(ctx context.Context, chatID, userID string, muted bool) error
	// OnMessageCreated is the trigger handler invoked by the event subscriber
	OnMessageCreated(ctx context.Context, msg *domain.Message)
}

type chatUsecase struct {
	chats      repository.ChatRepository
	userRepo   userrepo.UserRepository
	fcmRepo    userrepo.FCMTokenRepository
	dispatcher Dispatcher
	publisher  events.Publisher
	now        func() time.Time
}

// NewChatUsecase creates a new instance of chatUsecase
func NewChatUsecase(
	chats repository.ChatRepository,
	userRepo userrepo.UserRepository,
	fcmRepo userrepo.FCMTokenRepository,
	dispatcher Dispatcher,
	publisher events.Publisher,
) ChatUsecase {
	return &chatUsecase{
		chats:      chats,
		userRepo:   userRepo,
		fcmRepo:    fcmRepo,
		dispatcher: dispatcher,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (u *chatUsecase) CreateThread(ctx context.Context, creatorID, otherID string) (*domain.ChatThread, error) {
	if otherID == "" {
		return nil, apperr.InvalidArgument("participantId is required")
	}
	if otherID == creatorID {
		return nil, apperr.InvalidArgument("cannot open a chat with yourself")
	}

	other, err := u.userRepo.FindByID(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, apperr.NotFound("participant not found")
	}

	thread := &domain.ChatThread{ID: uuid.New().String()}
	participants := []domain.ChatParticipant{
		{UserID: creatorID},
		{UserID: otherID},
	}
	if err := u.chats.CreateThread(ctx, thread, participants); err != nil {
		return nil, err
	}
	return thread, nil
}

func (u *chatUsecase) SendMessage(ctx context.Context, chatID, senderID, content string, msgType domain.MessageType, mediaURL string) (*domain.Message, error) {
	if content == "" && msgType == domain.MessageTypeText {
		return nil, apperr.InvalidArgument("message content is required")
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	participants, err := u.chats.FindParticipants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, apperr.NotFound("chat not found")
	}

	recipient := otherParticipant(participants, senderID)
	if recipient == nil {
		return nil, apperr.InvalidArgument("sender is not a participant of this chat")
	}

	msg := &domain.Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Type:     msgType,
		MediaURL: mediaURL,
	}
	if err := u.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Single-field atomic increment; the send path runs exactly once, so the
	// counter cannot be inflated by event redelivery.
	if err := u.chats.IncrementUnread(ctx, chatID, recipient.UserID); err != nil {
		log.Errorf("[Chat] Failed to increment unread count for %s: %v", recipient.UserID, err)
	}

	env, err := events.NewMessageCreated(msg)
	if err != nil {
		log.Errorf("[Chat] Failed to build event: %v", err)
		return msg, nil
	}
	if err := u.publisher.Publish(ctx, env); err != nil {
		log.Errorf("[Chat] Failed to publish message event: %v", err)
	}
	return msg, nil
}

func (u *chatUsecase) TouchActive(ctx context.Context, chatID, userID string) error {
	if err := u.chats.TouchLastActive(ctx, chatID, userID, u.now()); err != nil {
		return err
	}
	return u.chats.ResetUnread(ctx, chatID, userID)
}

func (u *chatUsecase) SetMuted(ctx context.Context, chatID, userID string, muted bool) error {
	return u.chats.SetMuted(ctx, chatID, userID, muted)
}

// OnMessageCreated pushes a new-message notification to the other
// participant of the thread. Trigger semantics: every failure path logs and
// returns, nothing propagates.
func (u *chatUsecase) OnMessageCreated(ctx context.Context, msg *domain.Message) {
	if msg.SenderID == "" || msg.ChatID == "" {
		log.Warn("[ChatNotify] Message is missing required data, skipping")
		return
	}

	participants, err := u.chats.FindParticipants(ctx, msg.ChatID)
	if err != nil {
		log.Errorf("[ChatNotify] Failed to load chat %s: %v", msg.ChatID, err)
		return
	}

	recipient := otherParticipant(participants, msg.SenderID)
	if recipient == nil {
		log.Warnf("[ChatNotify] Recipient not found in chat %s, skipping", msg.ChatID)
		return
	}

	// Suppress when the recipient was active in the thread moments ago
	if recipient.LastActive != nil && u.now().Sub(*recipient.LastActive) < activeWindow {
		log.Infof("[ChatNotify] Recipient %s is active in chat, skipping notification", recipient.UserID)
		return
	}

	tokenRecords, err := u.fcmRepo.GetTokensByUserID(ctx, recipient.UserID)
	if err != nil {
		log.Errorf("[ChatNotify] Failed to load tokens for %s: %v", recipient.UserID, err)
		return
	}
	if len(tokenRecords) == 0 {
		log.Infof("[ChatNotify] No FCM tokens for recipient %s, skipping", recipient.UserID)
		return
	}
	tokens := make([]string, 0, len(tokenRecords))
	for _, t := range tokenRecords {
		tokens = append(tokens, t.Token)
	}

	sender := notification.SenderView{ID: msg.SenderID}
	if user, err := u.userRepo.FindByID(ctx, msg.SenderID); err != nil {
		log.Errorf("[ChatNotify] Failed to load sender %s: %v", msg.SenderID, err)
	} else if user != nil {
		sender.Name = user.DisplayName
		sender.PhotoURL = user.PhotoURL
	}

	payload := notification.ChatMessage(msg, sender, recipient.Muted, u.now())
	result, err := u.dispatcher.Dispatch(ctx, recipient.UserID, tokens, payload)
	if err != nil {
		log.Errorf("[ChatNotify] Failed to send notification for message %s: %v", msg.ID, err)
		return
	}
	log.Infof("[ChatNotify] Sent notification to %d of %d devices for recipient %s",
		result.SuccessCount, len(tokens), recipient.UserID)
}

func otherParticipant(participants []domain.ChatParticipant, senderID string) *domain.ChatParticipant {
	var recipient *domain.ChatParticipant
	senderPresent := false
	for i := range participants {
		if participants[i].UserID == senderID {
			senderPresent = true
		} else {
			recipient = &participants[i]
		}
	}
	if !senderPresent {
		return nil
	}
	return recipient
}
