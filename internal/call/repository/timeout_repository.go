package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"abdiwave-backend/internal/call/domain"
)

// TimeoutRepository persists armed ring timeouts. Arming is an upsert and
// disarming deletes by call id, so both are idempotent and safe to apply in
// any order, including disarm-after-fire.
type TimeoutRepository interface {
	Arm(ctx context.Context, callID string, deadline time.Time) error
	Disarm(ctx context.Context, callID string) error
	// FindExpired returns the armed timeouts whose deadline has elapsed
	FindExpired(ctx context.Context, now time.Time) ([]domain.RingTimeout, error)
}

type timeoutRepository struct {
	db *gorm.DB
}

// NewTimeoutRepository creates a new instance of timeoutRepository
func NewTimeoutRepository(db *gorm.DB) TimeoutRepository {
	return &timeoutRepository{db: db}
}

func (r *timeoutRepository) Arm(ctx context.Context, callID string, deadline time.Time) error {
	timeout := &domain.RingTimeout{
		CallID:    callID,
		Deadline:  deadline,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"deadline"}),
	}).Create(timeout).Error
}

func (r *timeoutRepository) Disarm(ctx context.Context, callID string) error {
	return r.db.WithContext(ctx).Where("call_id = ?", callID).Delete(&domain.RingTimeout{}).Error
}

func (r *timeoutRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.RingTimeout, error) {
	var timeouts []domain.RingTimeout
	err := r.db.WithContext(ctx).Where("deadline <= ?", now).Find(&timeouts).Error
	if err != nil {
		return nil, err
	}
	return timeouts, nil
}
