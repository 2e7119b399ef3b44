package fraud

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
	"github.com/campuswatch/checkin-fraud/pkg/common"
	"github.com/campuswatch/checkin-fraud/pkg/validation"
)

// Handler handles HTTP requests for check-in fraud evaluation
type Handler struct {
	service ServiceAPI
}

// NewHandler creates a new fraud handler
func NewHandler(service ServiceAPI) *Handler {
	return &Handler{service: service}
}

// locationPayload carries a GPS reading. Coordinates are validated here, at
// the boundary; the core assumes pre-validated input.
type locationPayload struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Accuracy  float64  `json:"accuracy" binding:"gte=0"`
	Timestamp int64    `json:"timestamp" binding:"required"` // ms since epoch
}

type devicePayload struct {
	ID        string `json:"id" binding:"required"`
	UserAgent string `json:"user_agent"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

type checkinPayload struct {
	StudentID int64            `json:"student_id" binding:"required"`
	QRCodeID  string           `json:"qr_code_id" binding:"required"`
	SessionID string           `json:"session_id"`
	Timestamp int64            `json:"timestamp" binding:"required"` // ms since epoch, client-reported
	Location  *locationPayload `json:"location"`
	Device    *devicePayload   `json:"device"`
	Photo     string           `json:"photo"` // base64-encoded payload
}

type outcomePayload struct {
	checkinPayload
	Outcome string `json:"outcome" binding:"required,oneof=accepted rejected flagged"`
}

type updateAlertStatusPayload struct {
	Status         string `json:"status" binding:"required,oneof=pending investigating confirmed false_positive resolved"`
	InvestigatedBy string `json:"investigated_by"`
	Notes          string `json:"notes"`
	ActionTaken    string `json:"action_taken"`
}

func (p *checkinPayload) toContext() *SecurityContext {
	sctx := &SecurityContext{
		StudentID: p.StudentID,
		QRCodeID:  p.QRCodeID,
		SessionID: p.SessionID,
		Timestamp: time.UnixMilli(p.Timestamp),
	}
	if p.Location != nil {
		sctx.Location = &LocationData{
			Latitude:  *p.Location.Latitude,
			Longitude: *p.Location.Longitude,
			Accuracy:  p.Location.Accuracy,
			Timestamp: time.UnixMilli(p.Location.Timestamp),
		}
	}
	if p.Device != nil {
		sctx.Device = &DeviceFingerprint{
			ID:        p.Device.ID,
			UserAgent: p.Device.UserAgent,
			Timestamp: time.UnixMilli(p.Device.Timestamp),
		}
	}
	return sctx
}

// EvaluateCheckin scores a check-in attempt
// POST /api/v1/checkins/evaluate
func (h *Handler) EvaluateCheckin(c *gin.Context) {
	var req checkinPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindErrorResponse(c, err)
		return
	}

	var photo []byte
	if req.Photo != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Photo)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "photo must be base64 encoded")
			return
		}
		photo = decoded
	}

	evaluation, err := h.service.EvaluateCheckin(c.Request.Context(), req.toContext(), photo)
	if err != nil {
		if appErr, ok := err.(*common.AppError); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to evaluate check-in")
		return
	}

	common.SuccessResponse(c, evaluation)
}

// RecordOutcome records a completed attempt into the behavioral baseline
// POST /api/v1/checkins/outcome
func (h *Handler) RecordOutcome(c *gin.Context) {
	var req outcomePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindErrorResponse(c, err)
		return
	}

	err := h.service.RecordOutcome(c.Request.Context(), req.toContext(), behavior.Outcome(req.Outcome))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record outcome")
		return
	}

	common.SuccessResponse(c, gin.H{"recorded": true})
}

// GetBehaviorPattern returns a student's baseline for diagnostics
// GET /api/v1/students/:student_id/behavior
func (h *Handler) GetBehaviorPattern(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Param("student_id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid student id")
		return
	}

	pattern, err := h.service.GetBehaviorPattern(c.Request.Context(), studentID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load behavior pattern")
		return
	}
	if pattern == nil {
		common.ErrorResponse(c, http.StatusNotFound, "no behavior pattern for student")
		return
	}

	common.SuccessResponse(c, pattern)
}

// GetStudentAlerts lists a student's fraud alerts
// GET /api/v1/students/:student_id/alerts
func (h *Handler) GetStudentAlerts(c *gin.Context) {
	studentID, err := strconv.ParseInt(c.Param("student_id"), 10, 64)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid student id")
		return
	}
	limit, offset := paginationParams(c)

	alerts, total, err := h.service.GetStudentAlerts(c.Request.Context(), studentID, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	common.SuccessResponse(c, gin.H{"alerts": alerts, "total": total})
}

// GetPendingAlerts lists unresolved fraud alerts
// GET /api/v1/alerts/pending
func (h *Handler) GetPendingAlerts(c *gin.Context) {
	limit, offset := paginationParams(c)

	alerts, total, err := h.service.GetPendingAlerts(c.Request.Context(), limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	common.SuccessResponse(c, gin.H{"alerts": alerts, "total": total})
}

// UpdateAlertStatus advances an alert through the review workflow
// PUT /api/v1/alerts/:alert_id/status
func (h *Handler) UpdateAlertStatus(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert id")
		return
	}

	var req updateAlertStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		bindErrorResponse(c, err)
		return
	}

	err = h.service.UpdateAlertStatus(c.Request.Context(), alertID, AlertStatus(req.Status), req.InvestigatedBy, req.Notes, req.ActionTaken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.ErrorResponse(c, http.StatusNotFound, "alert not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update alert")
		return
	}

	common.SuccessResponse(c, gin.H{"updated": true})
}

// GetAlert returns a single alert for review
// GET /api/v1/alerts/:alert_id
func (h *Handler) GetAlert(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("alert_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert id")
		return
	}

	alert, err := h.service.GetAlert(c.Request.Context(), alertID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load alert")
		return
	}
	if alert == nil {
		common.ErrorResponse(c, http.StatusNotFound, "alert not found")
		return
	}

	common.SuccessResponse(c, alert)
}

// bindErrorResponse maps binding failures to a 400 with field-level messages
// when the failure came from struct validation.
func bindErrorResponse(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		common.ErrorResponse(c, http.StatusBadRequest, validation.NewValidationError(verrs).Error())
		return
	}
	common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
