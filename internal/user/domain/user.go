package domain

import "time"

// User is one registered user as seen by the notification pipeline
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FCMToken represents a Firebase Cloud Messaging device token for push
// notifications. The rows for one user form that user's token set: the
// unique index on token makes membership and removal value-targeted, so
// removing an already-absent token is a no-op and a token re-registered
// after a failed delivery attempt is never collateral damage.
type FCMToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"` // Don't expose token in JSON
	DeviceInfo string    `json:"device_info"`                   // Browser/device metadata
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
