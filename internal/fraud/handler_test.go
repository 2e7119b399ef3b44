package fraud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
)

type mockService struct {
	mock.Mock
}

var _ ServiceAPI = (*mockService)(nil)

func (m *mockService) EvaluateCheckin(ctx context.Context, sctx *SecurityContext, photo []byte) (*Evaluation, error) {
	args := m.Called(ctx, sctx, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Evaluation), args.Error(1)
}

func (m *mockService) RecordOutcome(ctx context.Context, sctx *SecurityContext, outcome behavior.Outcome) error {
	args := m.Called(ctx, sctx, outcome)
	return args.Error(0)
}

func (m *mockService) GetBehaviorPattern(ctx context.Context, studentID int64) (*behavior.Pattern, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*behavior.Pattern), args.Error(1)
}

func (m *mockService) GetAlert(ctx context.Context, alertID uuid.UUID) (*Alert, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Alert), args.Error(1)
}

func (m *mockService) GetStudentAlerts(ctx context.Context, studentID int64, limit, offset int) ([]*Alert, int64, error) {
	args := m.Called(ctx, studentID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*Alert), args.Get(1).(int64), args.Error(2)
}

func (m *mockService) GetPendingAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*Alert), args.Get(1).(int64), args.Error(2)
}

func (m *mockService) UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status AlertStatus, investigatedBy, notes, actionTaken string) error {
	args := m.Called(ctx, alertID, status, investigatedBy, notes, actionTaken)
	return args.Error(0)
}

func setupRouter(svc ServiceAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/checkins/evaluate", h.EvaluateCheckin)
	v1.POST("/checkins/outcome", h.RecordOutcome)
	v1.GET("/students/:student_id/behavior", h.GetBehaviorPattern)
	v1.GET("/students/:student_id/alerts", h.GetStudentAlerts)
	v1.GET("/alerts/pending", h.GetPendingAlerts)
	v1.GET("/alerts/:alert_id", h.GetAlert)
	v1.PUT("/alerts/:alert_id/status", h.UpdateAlertStatus)
	return r
}

func performJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func evaluateBody() map[string]interface{} {
	return map[string]interface{}{
		"student_id": 42,
		"qr_code_id": "qr-7",
		"timestamp":  testNow.UnixMilli(),
		"location": map[string]interface{}{
			"latitude":  40.7128,
			"longitude": -74.006,
			"accuracy":  12,
			"timestamp": testNow.UnixMilli(),
		},
		"device": map[string]interface{}{
			"id":         "device-1",
			"user_agent": "Mozilla/5.0",
			"timestamp":  testNow.UnixMilli(),
		},
	}
}

func TestHandlerEvaluateCheckin(t *testing.T) {
	svc := new(mockService)
	svc.On("EvaluateCheckin", mock.Anything, mock.MatchedBy(func(sctx *SecurityContext) bool {
		return sctx.StudentID == 42 &&
			sctx.QRCodeID == "qr-7" &&
			sctx.Location != nil && sctx.Location.Latitude == 40.7128 &&
			sctx.Device != nil && sctx.Device.ID == "device-1" &&
			sctx.Timestamp.Equal(testNow)
	}), []byte(nil)).Return(&Evaluation{
		Score:  &Score{RiskLevel: RiskLevelLow, Confidence: 2.0 / 3.0},
		Alerts: []*Alert{},
	}, nil)

	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/evaluate", evaluateBody())

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Score struct {
				RiskLevel string `json:"risk_level"`
			} `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "LOW", resp.Data.Score.RiskLevel)
	svc.AssertExpectations(t)
}

func TestHandlerEvaluateCheckinDecodesPhoto(t *testing.T) {
	photo := []byte("jpeg bytes")
	svc := new(mockService)
	svc.On("EvaluateCheckin", mock.Anything, mock.Anything, photo).
		Return(&Evaluation{Score: &Score{RiskLevel: RiskLevelLow}}, nil)

	body := evaluateBody()
	body["photo"] = base64.StdEncoding.EncodeToString(photo)
	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/evaluate", body)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandlerEvaluateCheckinRejectsBadPhoto(t *testing.T) {
	svc := new(mockService)
	body := evaluateBody()
	body["photo"] = "not-base64!!!"

	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/evaluate", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "EvaluateCheckin", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerEvaluateCheckinValidation(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(svc)

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing student id", func(b map[string]interface{}) { delete(b, "student_id") }},
		{"missing qr code", func(b map[string]interface{}) { delete(b, "qr_code_id") }},
		{"missing timestamp", func(b map[string]interface{}) { delete(b, "timestamp") }},
		{"latitude out of range", func(b map[string]interface{}) {
			b["location"].(map[string]interface{})["latitude"] = 95.0
		}},
		{"longitude out of range", func(b map[string]interface{}) {
			b["location"].(map[string]interface{})["longitude"] = -181.0
		}},
		{"negative accuracy", func(b map[string]interface{}) {
			b["location"].(map[string]interface{})["accuracy"] = -1.0
		}},
		{"device without id", func(b map[string]interface{}) {
			delete(b["device"].(map[string]interface{}), "id")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := evaluateBody()
			tt.mutate(body)
			w := performJSON(t, r, http.MethodPost, "/api/v1/checkins/evaluate", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	svc.AssertNotCalled(t, "EvaluateCheckin", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerEvaluateCheckinServiceError(t *testing.T) {
	svc := new(mockService)
	svc.On("EvaluateCheckin", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("store down"))

	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/evaluate", evaluateBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandlerRecordOutcome(t *testing.T) {
	svc := new(mockService)
	svc.On("RecordOutcome", mock.Anything, mock.MatchedBy(func(sctx *SecurityContext) bool {
		return sctx.StudentID == 42
	}), behavior.OutcomeAccepted).Return(nil)

	body := evaluateBody()
	body["outcome"] = "accepted"
	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/outcome", body)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandlerRecordOutcomeRejectsUnknownOutcome(t *testing.T) {
	svc := new(mockService)
	body := evaluateBody()
	body["outcome"] = "maybe"

	w := performJSON(t, setupRouter(svc), http.MethodPost, "/api/v1/checkins/outcome", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "RecordOutcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerGetBehaviorPattern(t *testing.T) {
	svc := new(mockService)
	pattern := behavior.NewPattern(42)
	pattern.Record(behavior.Attempt{Timestamp: testNow, Outcome: behavior.OutcomeAccepted}, 200)
	svc.On("GetBehaviorPattern", mock.Anything, int64(42)).Return(pattern, nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/students/42/behavior", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			StudentID int64 `json:"student_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Data.StudentID)
}

func TestHandlerGetBehaviorPatternNotFound(t *testing.T) {
	svc := new(mockService)
	svc.On("GetBehaviorPattern", mock.Anything, int64(42)).Return(nil, nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/students/42/behavior", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerGetBehaviorPatternInvalidID(t *testing.T) {
	svc := new(mockService)
	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/students/abc/behavior", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetBehaviorPattern", mock.Anything, mock.Anything)
}

func TestHandlerGetStudentAlerts(t *testing.T) {
	svc := new(mockService)
	alerts := []*Alert{{ID: uuid.New(), StudentID: 42, Type: AlertTypeDeviceSharing, Severity: AlertSeverityMedium}}
	svc.On("GetStudentAlerts", mock.Anything, int64(42), 20, 0).Return(alerts, int64(1), nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/students/42/alerts", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.Total)
}

func TestHandlerGetPendingAlertsPagination(t *testing.T) {
	svc := new(mockService)
	svc.On("GetPendingAlerts", mock.Anything, 50, 10).Return([]*Alert{}, int64(0), nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/alerts/pending?limit=50&offset=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandlerGetPendingAlertsClampsPagination(t *testing.T) {
	svc := new(mockService)
	svc.On("GetPendingAlerts", mock.Anything, 20, 0).Return([]*Alert{}, int64(0), nil)

	// Out-of-range values fall back to defaults.
	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/alerts/pending?limit=500&offset=-3", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandlerUpdateAlertStatus(t *testing.T) {
	svc := new(mockService)
	alertID := uuid.New()
	svc.On("UpdateAlertStatus", mock.Anything, alertID, AlertStatusConfirmed, "staff-9", "confirmed via CCTV", "attendance revoked").Return(nil)

	body := map[string]interface{}{
		"status":          "confirmed",
		"investigated_by": "staff-9",
		"notes":           "confirmed via CCTV",
		"action_taken":    "attendance revoked",
	}
	w := performJSON(t, setupRouter(svc), http.MethodPut, "/api/v1/alerts/"+alertID.String()+"/status", body)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandlerUpdateAlertStatusUnknownAlert(t *testing.T) {
	svc := new(mockService)
	alertID := uuid.New()
	svc.On("UpdateAlertStatus", mock.Anything, alertID, AlertStatusResolved, "", "", "").
		Return(pgx.ErrNoRows)

	w := performJSON(t, setupRouter(svc), http.MethodPut, "/api/v1/alerts/"+alertID.String()+"/status",
		map[string]interface{}{"status": "resolved"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerGetAlert(t *testing.T) {
	svc := new(mockService)
	alertID := uuid.New()
	svc.On("GetAlert", mock.Anything, alertID).Return(&Alert{
		ID:       alertID,
		Type:     AlertTypeDeviceSharing,
		Severity: AlertSeverityMedium,
		Status:   AlertStatusPending,
	}, nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/alerts/"+alertID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			ID   uuid.UUID `json:"id"`
			Type string    `json:"type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, alertID, resp.Data.ID)
	assert.Equal(t, "DEVICE_SHARING", resp.Data.Type)
}

func TestHandlerGetAlertNotFound(t *testing.T) {
	svc := new(mockService)
	alertID := uuid.New()
	svc.On("GetAlert", mock.Anything, alertID).Return(nil, nil)

	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/alerts/"+alertID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerGetAlertInvalidID(t *testing.T) {
	svc := new(mockService)
	w := performJSON(t, setupRouter(svc), http.MethodGet, "/api/v1/alerts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetAlert", mock.Anything, mock.Anything)
}

func TestHandlerUpdateAlertStatusInvalidID(t *testing.T) {
	svc := new(mockService)
	w := performJSON(t, setupRouter(svc), http.MethodPut, "/api/v1/alerts/not-a-uuid/status",
		map[string]interface{}{"status": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UpdateAlertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlerUpdateAlertStatusInvalidStatus(t *testing.T) {
	svc := new(mockService)
	w := performJSON(t, setupRouter(svc), http.MethodPut, "/api/v1/alerts/"+uuid.NewString()+"/status",
		map[string]interface{}{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "UpdateAlertStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
