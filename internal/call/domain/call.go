package domain

import "time"

// CallType distinguishes audio from video calls
type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

// CallStatus represents the lifecycle state of a call attempt. Status moves
// along a single monotonic path per call; a record never re-enters dialing
// or ringing after reaching a terminal state.
type CallStatus string

const (
	CallStatusDialing  CallStatus = "dialing"
	CallStatusRinging  CallStatus = "ringing"
	CallStatusActive   CallStatus = "active"
	CallStatusEnded    CallStatus = "ended"
	CallStatusMissed   CallStatus = "missed"
	CallStatusRejected CallStatus = "rejected"
)

// Terminal reports whether the status ends the call lifecycle
func (s CallStatus) Terminal() bool {
	return s == CallStatusEnded || s == CallStatusMissed || s == CallStatusRejected
}

// Valid reports whether the status is one of the known lifecycle states
func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusDialing, CallStatusRinging, CallStatusActive,
		CallStatusEnded, CallStatusMissed, CallStatusRejected:
		return true
	}
	return false
}

// CallRecord identifies one call attempt. Records are created by the caller
// side in dialing or ringing, mutated by receiver action or by the ring
// timeout, and retained for history (never deleted by this subsystem).
type CallRecord struct {
	CallID             string     `json:"callId" gorm:"primaryKey;column:call_id"`
	CallerID           string     `json:"callerId" gorm:"index;not null"`
	ReceiverID         string     `json:"receiverId" gorm:"index;not null"`
	ChannelID          string     `json:"channelId" gorm:"not null"`
	Type               CallType   `json:"type" gorm:"type:varchar(10)"`
	Status             CallStatus `json:"status" gorm:"type:varchar(20);index"`
	Token              string     `json:"token"`
	CallerName         string     `json:"callerName"`
	CallerPhotoURL     string     `json:"callerPhotoUrl"`
	NotificationSent   bool       `json:"notificationSent"`
	NotificationSentAt *time.Time `json:"notificationSentAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (CallRecord) TableName() string {
	return "calls"
}

// RingTimeout is the durable armed-timer record for an unanswered call.
// Armed state lives only in this table so timers survive process restarts;
// a periodic sweep resolves rows whose deadline has elapsed.
type RingTimeout struct {
	CallID    string    `gorm:"primaryKey;column:call_id"`
	Deadline  time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (RingTimeout) TableName() string {
	return "ring_timeouts"
}
