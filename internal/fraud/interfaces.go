package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
)

// SignalResult is one analyzer's verdict: a suspicion score in [0,1] plus
// human-readable factors naming the checks that fired.
type SignalResult struct {
	Score   float64
	Factors []string
}

// DeviceAnalyzer scores a device fingerprint against a student's history.
// The built-in implementation is a heuristic; a real virtualization-detection
// pipeline can be substituted without touching the scorer.
type DeviceAnalyzer interface {
	AnalyzeDevice(device *DeviceFingerprint, pattern *behavior.Pattern, now time.Time) SignalResult
}

// PhotoAnalyzer scores a check-in photo payload. The built-in implementation
// is a format/size heuristic standing in for real image forensics.
type PhotoAnalyzer interface {
	AnalyzePhoto(photo []byte) SignalResult
}

// AlertRepository persists fraud alerts and their review workflow.
type AlertRepository interface {
	CreateAlert(ctx context.Context, alert *Alert) error
	GetAlertByID(ctx context.Context, alertID uuid.UUID) (*Alert, error)
	GetAlertsByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*Alert, int64, error)
	GetPendingAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error)
	UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status AlertStatus, investigatedBy, notes, actionTaken string) error
}

// ServiceAPI is the surface the HTTP handler depends on.
type ServiceAPI interface {
	EvaluateCheckin(ctx context.Context, sctx *SecurityContext, photo []byte) (*Evaluation, error)
	RecordOutcome(ctx context.Context, sctx *SecurityContext, outcome behavior.Outcome) error
	GetBehaviorPattern(ctx context.Context, studentID int64) (*behavior.Pattern, error)
	GetAlert(ctx context.Context, alertID uuid.UUID) (*Alert, error)
	GetStudentAlerts(ctx context.Context, studentID int64, limit, offset int) ([]*Alert, int64, error)
	GetPendingAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error)
	UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status AlertStatus, investigatedBy, notes, actionTaken string) error
}
