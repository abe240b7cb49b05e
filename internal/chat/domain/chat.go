package domain

import "time"

// MessageType describes the content kind of a chat message
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
)

// ChatThread is a two-party conversation. The recipient of a message is
// always resolved from the participants rows, never derived by editing a
// composite id string.
type ChatThread struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatThread) TableName() string {
	return "chats"
}

// ChatParticipant holds the per-user state of one thread: mute flag, the
// last-active timestamp used for the notification suppression window, and
// the unread counter (incremented with a single-field atomic update).
type ChatParticipant struct {
	ChatID      string     `json:"chat_id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"primaryKey"`
	Muted       bool       `json:"muted"`
	LastActive  *time.Time `json:"last_active,omitempty"`
	UnreadCount int        `json:"unread_count"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

// Message is one chat message
type Message struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	ChatID    string      `json:"chatId" gorm:"index;not null"`
	SenderID  string      `json:"senderId" gorm:"not null"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type" gorm:"type:varchar(20)"`
	MediaURL  string      `json:"mediaUrl"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
