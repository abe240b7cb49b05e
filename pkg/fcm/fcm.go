package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(credentialsFile string) (*Client, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info("[FCM] Client initialized successfully")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// Payload is the platform-agnostic push payload. A Silent payload carries
// only the data block, never a visible notification.
type Payload struct {
	Title  string
	Body   string
	Sound  string
	Silent bool
	Data   map[string]string

	Android *AndroidHints
	APNS    *APNSHints
}

// AndroidHints carries Android-specific delivery options
type AndroidHints struct {
	ChannelID     string
	Sound         string
	Priority      string // "high" or "normal"
	Visibility    string // "public" or "private"
	VibrateMillis []int64
	CollapseKey   string
	Tag           string
}

// APNSHints carries Apple-specific delivery options
type APNSHints struct {
	Category         string
	Sound            string
	ContentAvailable bool
	MutableContent   bool
	Badge            *int
	ThreadID         string
	Priority         string // apns-priority header
	PushType         string // apns-push-type header
}

// TokenOutcome reports the delivery result for a single device token.
// Permanent means the token is confirmed dead (unregistered or malformed)
// and should be removed from the user's token set.
type TokenOutcome struct {
	Token     string
	Err       error
	Permanent bool
}

// SendResult aggregates the per-token outcomes of one multicast send
type SendResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []TokenOutcome
}

// SendMulticast fans the payload out to every token and classifies each
// failure. It returns an error only when the batch itself cannot be sent.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, payload *Payload) (*SendResult, error) {
	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	message := c.buildMessage(tokens, payload)

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	result := &SendResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}
	for i, resp := range response.Responses {
		outcome := TokenOutcome{Token: tokens[i]}
		if !resp.Success {
			outcome.Err = resp.Error
			outcome.Permanent = isPermanentFailure(resp.Error)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	log.Infof("[FCM] Multicast sent: %d success, %d failures", result.SuccessCount, result.FailureCount)
	return result, nil
}

func (c *Client) buildMessage(tokens []string, payload *Payload) *messaging.MulticastMessage {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   payload.Data,
	}

	if !payload.Silent {
		message.Notification = &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		}
	}

	if payload.Android != nil {
		message.Android = &messaging.AndroidConfig{
			Priority:    payload.Android.Priority,
			CollapseKey: payload.Android.CollapseKey,
		}
		if !payload.Silent {
			message.Android.Notification = &messaging.AndroidNotification{
				ChannelID:           payload.Android.ChannelID,
				Sound:               payload.Android.Sound,
				Tag:                 payload.Android.Tag,
				VibrateTimingMillis: payload.Android.VibrateMillis,
				Visibility:          androidVisibility(payload.Android.Visibility),
			}
		}
	}

	if payload.APNS != nil {
		aps := &messaging.Aps{
			Sound:            payload.APNS.Sound,
			ContentAvailable: payload.APNS.ContentAvailable,
			MutableContent:   payload.APNS.MutableContent,
			Category:         payload.APNS.Category,
			ThreadID:         payload.APNS.ThreadID,
			Badge:            payload.APNS.Badge,
		}
		headers := map[string]string{}
		if payload.APNS.Priority != "" {
			headers["apns-priority"] = payload.APNS.Priority
		}
		if payload.APNS.PushType != "" {
			headers["apns-push-type"] = payload.APNS.PushType
		}
		message.APNS = &messaging.APNSConfig{
			Headers: headers,
			Payload: &messaging.APNSPayload{Aps: aps},
		}
	}

	return message
}

func androidVisibility(v string) messaging.AndroidNotificationVisibility {
	switch v {
	case "public":
		return messaging.VisibilityPublic
	case "secret":
		return messaging.VisibilitySecret
	default:
		return messaging.VisibilityPrivate
	}
}

// isPermanentFailure reports whether a per-token error means the registration
// token is dead. Transient conditions (quota, unavailable, internal) are left
// for the next delivery attempt.
//
// The SDK reports a malformed token as plain INVALID_ARGUMENT with no
// token-specific code, so this classification requires every composed
// payload to be valid (UTF-8 strings, within FCM size limits); a payload
// that triggers INVALID_ARGUMENT itself would read as dead tokens here.
func isPermanentFailure(err error) bool {
	if err == nil {
		return false
	}
	return messaging.IsUnregistered(err) || errorutils.IsInvalidArgument(err)
}
