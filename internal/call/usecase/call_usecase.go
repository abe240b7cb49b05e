package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"abdiwave-backend/internal/call/domain"
	"abdiwave-backend/internal/call/repository"
	"abdiwave-backend/internal/events"
	"abdiwave-backend/internal/notification"
	userrepo "abdiwave-backend/internal/user/repository"
	"abdiwave-backend/pkg/apperr"
)

// CreateCallParams carries the client-supplied fields of a new call attempt
type CreateCallParams struct {
	CallID         string
	ReceiverID     string
	ChannelID      string
	Type           domain.CallType
	Status         domain.CallStatus
	Token          string
	CallerName     string
	CallerPhotoURL string
}

// CallData is the call snapshot a client hands to the notify entry point
type CallData struct {
	CallID         string `json:"callId"`
	ChannelID      string `json:"channelId"`
	CallerID       string `json:"callerId"`
	CallerName     string `json:"callerName"`
	CallerPhotoURL string `json:"callerPhotoUrl"`
	CallType       string `json:"callType"`
	Token          string `json:"token"`
}

// NotifyResult is the response of the notify entry point
type NotifyResult struct {
	Success           bool   `json:"success"`
	Reason            string `json:"reason,omitempty"`
	NotificationsSent int    `json:"notificationsSent,omitempty"`
	TokensCount       int    `json:"tokensCount,omitempty"`
}

// CallUsecase exposes the synchronous call operations behind the gateway
type CallUsecase interface {
	CreateCall(ctx context.Context, callerID string, params CreateCallParams) (*domain.CallRecord, error)
	UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, error)
	GetCall(ctx context.Context, callID string) (*domain.CallRecord, error)
	NotifyCall(ctx context.Context, receiverID string, data CallData) (*NotifyResult, error)
}

type callUsecase struct {
	calls      repository.CallRepository
	userRepo   userrepo.UserRepository
	fcmRepo    userrepo.FCMTokenRepository
	dispatcher Dispatcher
	publisher  events.Publisher
	now        func() time.Time
}

// NewCallUsecase creates a new instance of callUsecase
func NewCallUsecase(
	calls repository.CallRepository,
	userRepo userrepo.UserRepository,
	fcmRepo userrepo.FCMTokenRepository,
	dispatcher Dispatcher,
	publisher events.Publisher,
) CallUsecase {
	return &callUsecase{
		calls:      calls,
		userRepo:   userRepo,
		fcmRepo:    fcmRepo,
		dispatcher: dispatcher,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (u *callUsecase) CreateCall(ctx context.Context, callerID string, params CreateCallParams) (*domain.CallRecord, error) {
	if params.ReceiverID == "" || params.ChannelID == "" {
		return nil, apperr.InvalidArgument("receiverId and channelId are required")
	}

	status := params.Status
	if status == "" {
		status = domain.CallStatusRinging
	}
	if status != domain.CallStatusDialing && status != domain.CallStatusRinging {
		return nil, apperr.InvalidArgument("a call must be created in dialing or ringing status")
	}

	callType := params.Type
	if callType == "" {
		callType = domain.CallTypeAudio
	}
	if callType != domain.CallTypeAudio && callType != domain.CallTypeVideo {
		return nil, apperr.InvalidArgument("call type must be audio or video")
	}

	callID := params.CallID
	if callID == "" {
		callID = uuid.New().String()
	}

	record := &domain.CallRecord{
		CallID:         callID,
		CallerID:       callerID,
		ReceiverID:     params.ReceiverID,
		ChannelID:      params.ChannelID,
		Type:           callType,
		Status:         status,
		Token:          params.Token,
		CallerName:     params.CallerName,
		CallerPhotoURL: params.CallerPhotoURL,
	}
	if err := u.calls.Create(ctx, record); err != nil {
		return nil, err
	}

	u.publish(ctx, func() (events.Envelope, error) { return events.NewCallCreated(record) })
	return record, nil
}

func (u *callUsecase) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, error) {
	if callID == "" {
		return nil, apperr.InvalidArgument("callId is required")
	}
	if !status.Valid() {
		return nil, apperr.InvalidArgument("unknown call status")
	}

	before, after, err := u.calls.UpdateStatus(ctx, callID, status)
	if errors.Is(err, repository.ErrCallNotFound) {
		return nil, apperr.NotFound("call not found")
	}
	if errors.Is(err, repository.ErrInvalidTransition) {
		return nil, apperr.InvalidArgument("call already resolved")
	}
	if err != nil {
		return nil, err
	}

	if before.Status != after.Status {
		u.publish(ctx, func() (events.Envelope, error) { return events.NewCallUpdated(before, after) })
	}
	return after, nil
}

func (u *callUsecase) GetCall(ctx context.Context, callID string) (*domain.CallRecord, error) {
	record, err := u.calls.FindByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("call not found")
	}
	return record, nil
}

// NotifyCall is the client-driven fallback for ringing a receiver's devices.
// It composes and dispatches the same incoming-call payload as the create
// trigger, but never arms the ring timeout; only the create event does that.
func (u *callUsecase) NotifyCall(ctx context.Context, receiverID string, data CallData) (*NotifyResult, error) {
	if receiverID == "" || data.CallID == "" || data.ChannelID == "" {
		return nil, apperr.InvalidArgument("missing required call data")
	}

	user, err := u.userRepo.FindByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("recipient user not found")
	}

	tokenRecords, err := u.fcmRepo.GetTokensByUserID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if len(tokenRecords) == 0 {
		log.Infof("[CallNotify] No FCM tokens found for recipient %s", receiverID)
		return &NotifyResult{Success: false, Reason: "no_tokens"}, nil
	}

	tokens := make([]string, 0, len(tokenRecords))
	for _, t := range tokenRecords {
		tokens = append(tokens, t.Token)
	}

	record := &domain.CallRecord{
		CallID:         data.CallID,
		CallerID:       data.CallerID,
		ReceiverID:     receiverID,
		ChannelID:      data.ChannelID,
		Type:           domain.CallType(data.CallType),
		Token:          data.Token,
		CallerName:     data.CallerName,
		CallerPhotoURL: data.CallerPhotoURL,
	}
	payload := notification.IncomingCall(record, u.now())

	result, err := u.dispatcher.Dispatch(ctx, receiverID, tokens, payload)
	if err != nil {
		return nil, apperr.Internal("failed to send call notification")
	}

	if err := u.calls.MarkNotificationSent(ctx, data.CallID); err != nil {
		log.Errorf("[CallNotify] Failed to mark notification sent for %s: %v", data.CallID, err)
	}

	return &NotifyResult{
		Success:           true,
		NotificationsSent: result.SuccessCount,
		TokensCount:       len(tokens),
	}, nil
}

func (u *callUsecase) publish(ctx context.Context, build func() (events.Envelope, error)) {
	env, err := build()
	if err != nil {
		log.Errorf("[Call] Failed to build event: %v", err)
		return
	}
	if err := u.publisher.Publish(ctx, env); err != nil {
		log.Errorf("[Call] Failed to publish %s event: %v", env.Kind, err)
	}
}
