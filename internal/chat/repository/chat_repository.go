package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"abdiwave-backend/internal/chat/domain"
)

// ChatRepository manages chat threads, participants and messages
type ChatRepository interface {
	CreateThread(ctx context.Context, thread *domain.ChatThread, participants []domain.ChatParticipant) error
	FindParticipants(ctx context.Context, chatID string) ([]domain.ChatParticipant, error)
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// IncrementUnread bumps the recipient's unread counter with a single
	// atomic field update, never a read-modify-write.
	IncrementUnread(ctx context.Context, chatID, userID string) error
	ResetUnread(ctx context.Context, chatID, userID string) error
	TouchLastActive(ctx context.Context, chatID, userID string, at time.Time) error
	SetMuted(ctx context.Context, chatID, userID string, muted bool) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new instance of chatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateThread(ctx context.Context, thread *domain.ChatThread, participants []domain.ChatParticipant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		thread.CreatedAt = time.Now()
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		for i := range participants {
			participants[i].ChatID = thread.ID
		}
		return tx.Create(&participants).Error
	})
}

func (r *chatRepository) FindParticipants(ctx context.Context, chatID string) ([]domain.ChatParticipant, error) {
	var participants []domain.ChatParticipant
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	msg.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) IncrementUnread(ctx context.Context, chatID, userID string) error {
	return r.db.WithContext(ctx).Model(&domain.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
}

func (r *chatRepository) ResetUnread(ctx context.Context, chatID, userID string) error {
	return r.db.WithContext(ctx).Model(&domain.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("unread_count", 0).Error
}

func (r *chatRepository) TouchLastActive(ctx context.Context, chatID, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("last_active", at).Error
}

func (r *chatRepository) SetMuted(ctx context.Context, chatID, userID string, muted bool) error {
	return r.db.WithContext(ctx).Model(&domain.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("muted", muted).Error
}
