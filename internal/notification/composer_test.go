package notification

import (
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	calldomain "abdiwave-backend/internal/call/domain"
	chatdomain "abdiwave-backend/internal/chat/domain"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func testCall() *calldomain.CallRecord {
	return &calldomain.CallRecord{
		CallID:     "call-1",
		CallerID:   "A",
		ReceiverID: "B",
		ChannelID:  "c1",
		Type:       calldomain.CallTypeAudio,
		Status:     calldomain.CallStatusRinging,
		Token:      "media-token",
		CallerName: "Alice",
	}
}

func TestIncomingCallDeterministic(t *testing.T) {
	first := IncomingCall(testCall(), testNow)
	second := IncomingCall(testCall(), testNow)
	if !reflect.DeepEqual(first, second) {
		t.Error("same inputs produced different payloads")
	}
}

func TestIncomingCallFields(t *testing.T) {
	p := IncomingCall(testCall(), testNow)

	if p.Title != "Incoming Audio Call" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Body != "Alice is calling you" {
		t.Errorf("body = %q", p.Body)
	}
	if p.Silent {
		t.Error("incoming call payload must be visible")
	}

	// The data block must let a client join the channel without a follow-up read
	want := map[string]string{
		"callId":    "call-1",
		"callerId":  "A",
		"channelId": "c1",
		"token":     "media-token",
		"callType":  "audio",
	}
	for k, v := range want {
		if p.Data[k] != v {
			t.Errorf("data[%q] = %q, want %q", k, p.Data[k], v)
		}
	}
	if p.Data["timestamp"] != "1715342400000" {
		t.Errorf("timestamp = %q, want epoch millis string", p.Data["timestamp"])
	}

	if p.Android == nil || p.Android.ChannelID != "calls" || p.Android.Priority != "high" {
		t.Errorf("unexpected android hints: %+v", p.Android)
	}
	if p.APNS == nil || p.APNS.Category != "INCOMING_CALL" || !p.APNS.ContentAvailable {
		t.Errorf("unexpected apns hints: %+v", p.APNS)
	}
}

func TestIncomingCallVideoTitle(t *testing.T) {
	call := testCall()
	call.Type = calldomain.CallTypeVideo
	p := IncomingCall(call, testNow)
	if p.Title != "Incoming Video Call" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestIncomingCallUnknownCaller(t *testing.T) {
	call := testCall()
	call.CallerName = ""
	p := IncomingCall(call, testNow)
	if p.Body != "Someone is calling you" {
		t.Errorf("body = %q", p.Body)
	}
}

func TestCallStatusIsSilent(t *testing.T) {
	call := testCall()
	call.Status = calldomain.CallStatusMissed
	p := CallStatus(call, testNow)

	if !p.Silent {
		t.Error("status update must be data-only")
	}
	if p.Title != "" || p.Body != "" {
		t.Error("status update must carry no visible notification")
	}
	if p.Data["type"] != "call_update" || p.Data["status"] != "missed" || p.Data["callId"] != "call-1" {
		t.Errorf("unexpected data block: %v", p.Data)
	}
}

func testMessage(content string) *chatdomain.Message {
	return &chatdomain.Message{
		ID:       "m1",
		ChatID:   "chat-1",
		SenderID: "A",
		Content:  content,
		Type:     chatdomain.MessageTypeText,
	}
}

func TestChatMessagePreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	p := ChatMessage(testMessage(long), SenderView{ID: "A", Name: "Alice"}, false, testNow)

	want := strings.Repeat("x", 97) + "..."
	if p.Body != want {
		t.Errorf("body length %d, want truncated preview", len(p.Body))
	}
}

func TestChatMessagePreviewCountsCharactersNotBytes(t *testing.T) {
	// 60 two-byte characters: 120 bytes but well under the 100-character limit
	short := strings.Repeat("é", 60)
	p := ChatMessage(testMessage(short), SenderView{ID: "A", Name: "Alice"}, false, testNow)
	if p.Body != short {
		t.Errorf("body = %q, multibyte content under the limit must be untouched", p.Body)
	}

	long := strings.Repeat("é", 150)
	p = ChatMessage(testMessage(long), SenderView{ID: "A", Name: "Alice"}, false, testNow)
	want := strings.Repeat("é", 97) + "..."
	if p.Body != want {
		t.Errorf("body = %q, want a 97-character cut", p.Body)
	}
	if !utf8.ValidString(p.Body) {
		t.Error("truncation split a multibyte character")
	}
}

func TestChatMessageShortContentUntouched(t *testing.T) {
	p := ChatMessage(testMessage("hello"), SenderView{ID: "A", Name: "Alice"}, false, testNow)
	if p.Body != "hello" {
		t.Errorf("body = %q", p.Body)
	}
	if p.Title != "Alice" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Sound != "default" {
		t.Errorf("sound = %q", p.Sound)
	}
}

func TestChatMessageMutedHasNoSound(t *testing.T) {
	p := ChatMessage(testMessage("hello"), SenderView{ID: "A", Name: "Alice"}, true, testNow)
	if p.Sound != "" {
		t.Errorf("muted chat should have no sound, got %q", p.Sound)
	}
}

func TestChatMessageMediaPreviews(t *testing.T) {
	cases := []struct {
		msgType chatdomain.MessageType
		want    string
	}{
		{chatdomain.MessageTypeImage, "\U0001F4F7 Photo"},
		{chatdomain.MessageTypeVideo, "\U0001F3A5 Video"},
		{chatdomain.MessageTypeDocument, "\U0001F4C4 Document"},
	}
	for _, tc := range cases {
		msg := testMessage("ignored")
		msg.Type = tc.msgType
		p := ChatMessage(msg, SenderView{ID: "A"}, false, testNow)
		if p.Body != tc.want {
			t.Errorf("%s preview = %q, want %q", tc.msgType, p.Body, tc.want)
		}
	}
}

func TestChatMessageGrouping(t *testing.T) {
	p := ChatMessage(testMessage("hi"), SenderView{ID: "A"}, false, testNow)
	if p.Android.Tag != "chat_chat-1" || p.Android.CollapseKey != "chat_chat-1" {
		t.Errorf("unexpected android grouping: %+v", p.Android)
	}
	if p.APNS.ThreadID != "chat_chat-1" {
		t.Errorf("unexpected apns thread id: %q", p.APNS.ThreadID)
	}
}
