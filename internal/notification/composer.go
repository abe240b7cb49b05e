// Package notification composes and dispatches push payloads. Composition is
// pure: the same event and the same clock reading always produce the same
// payload, which keeps every variant unit-testable without a transport.
package notification

import (
	"strconv"
	"time"

	calldomain "abdiwave-backend/internal/call/domain"
	chatdomain "abdiwave-backend/internal/chat/domain"
	"abdiwave-backend/pkg/fcm"
)

const (
	callsChannelID    = "calls"
	messagesChannelID = "messages"
	clickAction       = "FLUTTER_NOTIFICATION_CLICK"

	// Chat previews over 100 characters are cut at 97 plus an ellipsis
	// marker; both counts are in characters, not bytes
	previewLimit = 100
	previewCut   = 97
)

// SenderView is the recipient-facing view of a message sender
type SenderView struct {
	ID       string
	Name     string
	PhotoURL string
}

// IncomingCall composes the high-priority payload that rings the receiver's
// devices. The data block carries everything a client needs to join the
// media channel without a follow-up read.
func IncomingCall(call *calldomain.CallRecord, now time.Time) *fcm.Payload {
	kind := "Audio"
	if call.Type == calldomain.CallTypeVideo {
		kind = "Video"
	}

	callerName := call.CallerName
	if callerName == "" {
		callerName = "Someone"
	}

	badge := 1
	return &fcm.Payload{
		Title: "Incoming " + kind + " Call",
		Body:  callerName + " is calling you",
		Sound: "ringtone",
		Data: map[string]string{
			"type":           "call",
			"callId":         call.CallID,
			"callerId":       call.CallerID,
			"callerName":     callerName,
			"callerPhotoUrl": call.CallerPhotoURL,
			"callType":       string(call.Type),
			"channelId":      call.ChannelID,
			"token":          call.Token,
			"timestamp":      epochMillis(now),
			"click_action":   clickAction,
		},
		Android: &fcm.AndroidHints{
			ChannelID:     callsChannelID,
			Sound:         "ringtone",
			Priority:      "high",
			Visibility:    "public",
			VibrateMillis: []int64{0, 500, 500, 500},
		},
		APNS: &fcm.APNSHints{
			Category:         "INCOMING_CALL",
			Sound:            "ringtone.mp3",
			ContentAvailable: true,
			Badge:            &badge,
			Priority:         "10",
			PushType:         "alert",
		},
	}
}

// CallStatus composes the silent data-only payload that lets the caller's
// client reconcile UI state after a call reaches missed, rejected or ended.
func CallStatus(call *calldomain.CallRecord, now time.Time) *fcm.Payload {
	return &fcm.Payload{
		Silent: true,
		Data: map[string]string{
			"type":      "call_update",
			"callId":    call.CallID,
			"status":    string(call.Status),
			"timestamp": epochMillis(now),
		},
		Android: &fcm.AndroidHints{
			Priority: "high",
		},
		APNS: &fcm.APNSHints{
			ContentAvailable: true,
			Priority:         "5",
			PushType:         "background",
		},
	}
}

// ChatMessage composes the payload for a new message in a thread. Muted
// threads still deliver, but without a sound.
func ChatMessage(msg *chatdomain.Message, sender SenderView, muted bool, now time.Time) *fcm.Payload {
	senderName := sender.Name
	if senderName == "" {
		senderName = "Someone"
	}

	sound := "default"
	if muted {
		sound = ""
	}

	groupKey := "chat_" + msg.ChatID
	badge := 1
	return &fcm.Payload{
		Title: senderName,
		Body:  messagePreview(msg),
		Sound: sound,
		Data: map[string]string{
			"type":           "chat",
			"chatId":         msg.ChatID,
			"messageId":      msg.ID,
			"senderId":       msg.SenderID,
			"senderName":     senderName,
			"senderPhotoUrl": sender.PhotoURL,
			"content":        msg.Content,
			"messageType":    string(msg.Type),
			"timestamp":      epochMillis(now),
			"click_action":   clickAction,
		},
		Android: &fcm.AndroidHints{
			ChannelID:   messagesChannelID,
			Sound:       sound,
			Priority:    "high",
			Visibility:  "private",
			Tag:         groupKey,
			CollapseKey: groupKey,
		},
		APNS: &fcm.APNSHints{
			Sound:          sound,
			Badge:          &badge,
			ThreadID:       groupKey,
			MutableContent: true,
		},
	}
}

func messagePreview(msg *chatdomain.Message) string {
	switch msg.Type {
	case chatdomain.MessageTypeImage:
		return "\U0001F4F7 Photo"
	case chatdomain.MessageTypeVideo:
		return "\U0001F3A5 Video"
	case chatdomain.MessageTypeDocument:
		return "\U0001F4C4 Document"
	}
	// Cut on rune boundaries; a byte slice could split a multibyte
	// character and put invalid UTF-8 into the push body.
	if content := []rune(msg.Content); len(content) > previewLimit {
		return string(content[:previewCut]) + "..."
	}
	return msg.Content
}

// epochMillis serializes a timestamp the way clients order pushes against
// each other: epoch milliseconds in string form.
func epochMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
