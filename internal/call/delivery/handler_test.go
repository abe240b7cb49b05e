package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"abdiwave-backend/internal/call/domain"
	"abdiwave-backend/internal/call/usecase"
	"abdiwave-backend/pkg/apperr"
)

type fakeCallUsecase struct {
	record *domain.CallRecord
	result *usecase.NotifyResult
	err    error
}

func (f *fakeCallUsecase) CreateCall(ctx context.Context, callerID string, params usecase.CreateCallParams) (*domain.CallRecord, error) {
	return f.record, f.err
}

func (f *fakeCallUsecase) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) (*domain.CallRecord, error) {
	return f.record, f.err
}

func (f *fakeCallUsecase) GetCall(ctx context.Context, callID string) (*domain.CallRecord, error) {
	return f.record, f.err
}

func (f *fakeCallUsecase) NotifyCall(ctx context.Context, receiverID string, data usecase.CallData) (*usecase.NotifyResult, error) {
	return f.result, f.err
}

type fakeMinter struct {
	token       string
	err         error
	channelName string
	uid         uint32
	role        string
	expire      uint32
}

func (f *fakeMinter) Mint(channelName string, uid uint32, role string, expireSeconds uint32) (string, error) {
	f.channelName = channelName
	f.uid = uid
	f.role = role
	f.expire = expireSeconds
	return f.token, f.err
}

func newTestRouter(uc usecase.CallUsecase, minter *fakeMinter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewCallHandler(uc, minter)

	r := gin.New()
	r.POST("/api/agora/token", handler.GenerateToken)
	r.POST("/api/calls", handler.CreateCall)
	r.POST("/api/calls/notify", handler.Notify)
	r.GET("/api/calls/:id", handler.GetCall)
	r.PATCH("/api/calls/:id/status", handler.UpdateStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body %q: %v", w.Body.String(), err)
	}
	return body.Error.Code
}

func TestGenerateTokenMissingChannelName(t *testing.T) {
	r := newTestRouter(&fakeCallUsecase{}, &fakeMinter{token: "tok"})

	w := doJSON(t, r, http.MethodPost, "/api/agora/token", `{"uid":"42"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != string(apperr.CodeInvalidArgument) {
		t.Errorf("error code = %q, want invalid-argument", code)
	}
}

func TestGenerateTokenDefaultsRoleAndExpiry(t *testing.T) {
	minter := &fakeMinter{token: "tok"}
	r := newTestRouter(&fakeCallUsecase{}, minter)

	w := doJSON(t, r, http.MethodPost, "/api/agora/token", `{"channelName":"room-1","uid":"42"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["token"] != "tok" {
		t.Errorf("token = %q", body["token"])
	}
	if minter.channelName != "room-1" || minter.uid != 42 {
		t.Errorf("minted for channel %q uid %d", minter.channelName, minter.uid)
	}
	if minter.role != "publisher" || minter.expire != 3600 {
		t.Errorf("role = %q expire = %d, want publisher/3600 defaults", minter.role, minter.expire)
	}
}

func TestGenerateTokenUnparseableUIDJoinsAsZero(t *testing.T) {
	minter := &fakeMinter{token: "tok"}
	r := newTestRouter(&fakeCallUsecase{}, minter)

	w := doJSON(t, r, http.MethodPost, "/api/agora/token", `{"channelName":"room-1","uid":"not-a-number"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if minter.uid != 0 {
		t.Errorf("uid = %d, want 0", minter.uid)
	}
}

func TestGetCallNotFoundStatus(t *testing.T) {
	r := newTestRouter(&fakeCallUsecase{err: apperr.NotFound("call not found")}, &fakeMinter{})

	w := doJSON(t, r, http.MethodGet, "/api/calls/missing", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code := errorCode(t, w); code != string(apperr.CodeNotFound) {
		t.Errorf("error code = %q", code)
	}
}

func TestUpdateStatusRequiresStatusField(t *testing.T) {
	r := newTestRouter(&fakeCallUsecase{}, &fakeMinter{})

	w := doJSON(t, r, http.MethodPatch, "/api/calls/call-1/status", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateCallReturnsCreated(t *testing.T) {
	record := &domain.CallRecord{CallID: "call-1", Status: domain.CallStatusRinging}
	r := newTestRouter(&fakeCallUsecase{record: record}, &fakeMinter{})

	w := doJSON(t, r, http.MethodPost, "/api/calls", `{"receiverId":"B","channelId":"c1"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var body domain.CallRecord
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.CallID != "call-1" {
		t.Errorf("call id = %q", body.CallID)
	}
}

func TestNotifyReportsNoTokens(t *testing.T) {
	result := &usecase.NotifyResult{Success: false, Reason: "no_tokens"}
	r := newTestRouter(&fakeCallUsecase{result: result}, &fakeMinter{})

	w := doJSON(t, r, http.MethodPost, "/api/calls/notify", `{"receiverId":"B","callData":{"callId":"call-1","channelId":"c1"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body usecase.NotifyResult
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Success || body.Reason != "no_tokens" {
		t.Errorf("body = %+v", body)
	}
}

func TestUnknownErrorsSurfaceAsInternal(t *testing.T) {
	r := newTestRouter(&fakeCallUsecase{err: context.DeadlineExceeded}, &fakeMinter{})

	w := doJSON(t, r, http.MethodGet, "/api/calls/call-1", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if code := errorCode(t, w); code != string(apperr.CodeInternal) {
		t.Errorf("error code = %q", code)
	}
}
