package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"abdiwave-backend/internal/call/domain"
)

var (
	ErrCallNotFound      = errors.New("call not found")
	ErrInvalidTransition = errors.New("call already in terminal status")
)

// CallRepository manages call records. Status transitions happen inside a
// transaction with the row locked, because the receiver's action and the
// ring-timeout fire race for the same record.
type CallRepository interface {
	Create(ctx context.Context, record *domain.CallRecord) error
	FindByID(ctx context.Context, callID string) (*domain.CallRecord, error)
	// UpdateStatus transitions the call under the monotonic guard and
	// returns the before/after snapshots for event publishing.
	UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, *domain.CallRecord, error)
	// MarkNotificationSent records that the incoming-call push went out.
	// Safe to call more than once.
	MarkNotificationSent(ctx context.Context, callID string) error
	// TransitionIfUnanswered marks the call missed only if it is still in a
	// pre-answer state at fire time. Returns changed=false when the call was
	// answered or resolved in the meantime.
	TransitionIfUnanswered(ctx context.Context, callID string) (*domain.CallRecord, *domain.CallRecord, bool, error)
}

type callRepository struct {
	db *gorm.DB
}

// NewCallRepository creates a new instance of callRepository
func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

func (r *callRepository) Create(ctx context.Context, record *domain.CallRecord) error {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *callRepository) FindByID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	var record domain.CallRecord
	err := r.db.WithContext(ctx).First(&record, "call_id = ?", callID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *callRepository) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, *domain.CallRecord, error) {
	var before, after domain.CallRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&before, "call_id = ?", callID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCallNotFound
		}
		if err != nil {
			return err
		}

		if before.Status == status {
			after = before
			return nil
		}
		if before.Status.Terminal() {
			return ErrInvalidTransition
		}

		now := time.Now()
		if err := tx.Model(&domain.CallRecord{}).
			Where("call_id = ?", callID).
			Updates(map[string]interface{}{"status": status, "updated_at": now}).Error; err != nil {
			return err
		}

		after = before
		after.Status = status
		after.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &before, &after, nil
}

func (r *callRepository) MarkNotificationSent(ctx context.Context, callID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.CallRecord{}).
		Where("call_id = ? AND notification_sent = ?", callID, false).
		Updates(map[string]interface{}{
			"notification_sent":    true,
			"notification_sent_at": now,
			"updated_at":           now,
		}).Error
}

func (r *callRepository) TransitionIfUnanswered(ctx context.Context, callID string) (*domain.CallRecord, *domain.CallRecord, bool, error) {
	var before, after domain.CallRecord
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&before, "call_id = ?", callID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCallNotFound
		}
		if err != nil {
			return err
		}

		if before.Status != domain.CallStatusDialing && before.Status != domain.CallStatusRinging {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&domain.CallRecord{}).
			Where("call_id = ?", callID).
			Updates(map[string]interface{}{"status": domain.CallStatusMissed, "updated_at": now}).Error; err != nil {
			return err
		}

		after = before
		after.Status = domain.CallStatusMissed
		after.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	if !changed {
		return &before, nil, false, nil
	}
	return &before, &after, true, nil
}
