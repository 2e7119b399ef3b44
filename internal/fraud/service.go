package fraud

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
	"github.com/campuswatch/checkin-fraud/pkg/logger"
)

// Evaluation is the result of scoring one check-in attempt.
type Evaluation struct {
	Score  *Score   `json:"score"`
	Alerts []*Alert `json:"alerts"`
}

// Service orchestrates fraud evaluation: it reads the behavioral baseline,
// runs the detector, persists any alerts, and records outcomes. Scoring
// never updates the behavior store; RecordOutcome does, once the caller
// knows the attempt's ground truth.
type Service struct {
	detector *Detector
	store    behavior.Store
	repo     AlertRepository
}

var _ ServiceAPI = (*Service)(nil)

// NewService creates a fraud service.
func NewService(detector *Detector, store behavior.Store, repo AlertRepository) *Service {
	return &Service{detector: detector, store: store, repo: repo}
}

// EvaluateCheckin scores a check-in attempt and persists generated alerts.
func (s *Service) EvaluateCheckin(ctx context.Context, sctx *SecurityContext, photo []byte) (*Evaluation, error) {
	pattern, err := s.store.Get(ctx, sctx.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load behavior pattern: %w", err)
	}

	score := s.detector.Score(sctx, photo, pattern)
	alerts := s.detector.GenerateAlerts(score, sctx)

	for _, alert := range alerts {
		if err := s.repo.CreateAlert(ctx, alert); err != nil {
			return nil, fmt.Errorf("failed to persist fraud alert: %w", err)
		}
	}

	observeEvaluation(score, alerts)

	logger.WithContext(ctx).Info("Check-in evaluated",
		zap.Int64("student_id", sctx.StudentID),
		zap.String("qr_code_id", sctx.QRCodeID),
		zap.Float64("overall", score.Overall),
		zap.String("risk_level", string(score.RiskLevel)),
		zap.Int("alerts", len(alerts)),
	)

	return &Evaluation{Score: score, Alerts: alerts}, nil
}

// RecordOutcome appends the attempt to the student's behavioral baseline.
// Called after the attempt's outcome is known so the baseline never contains
// the attempt currently being judged. Callers serialize per student.
func (s *Service) RecordOutcome(ctx context.Context, sctx *SecurityContext, outcome behavior.Outcome) error {
	attempt := behavior.Attempt{
		Timestamp: sctx.Timestamp,
		Outcome:   outcome,
	}
	if sctx.Location != nil {
		attempt.Location = &behavior.Location{
			Latitude:  sctx.Location.Latitude,
			Longitude: sctx.Location.Longitude,
			Accuracy:  sctx.Location.Accuracy,
			Timestamp: sctx.Location.Timestamp,
		}
	}
	if sctx.Device != nil {
		attempt.DeviceID = sctx.Device.ID
		attempt.UserAgent = sctx.Device.UserAgent
	}

	if err := s.store.Update(ctx, sctx.StudentID, attempt); err != nil {
		return fmt.Errorf("failed to update behavior pattern: %w", err)
	}
	return nil
}

// GetBehaviorPattern exposes a student's baseline for diagnostics. Returns
// nil when the student has no history yet.
func (s *Service) GetBehaviorPattern(ctx context.Context, studentID int64) (*behavior.Pattern, error) {
	return s.store.Get(ctx, studentID)
}

// GetAlert returns a persisted alert, or nil when no such alert exists.
func (s *Service) GetAlert(ctx context.Context, alertID uuid.UUID) (*Alert, error) {
	return s.repo.GetAlertByID(ctx, alertID)
}

// GetStudentAlerts lists a student's persisted alerts.
func (s *Service) GetStudentAlerts(ctx context.Context, studentID int64, limit, offset int) ([]*Alert, int64, error) {
	return s.repo.GetAlertsByStudent(ctx, studentID, limit, offset)
}

// GetPendingAlerts lists unresolved alerts.
func (s *Service) GetPendingAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error) {
	return s.repo.GetPendingAlerts(ctx, limit, offset)
}

// UpdateAlertStatus advances an alert through the review workflow.
func (s *Service) UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status AlertStatus, investigatedBy, notes, actionTaken string) error {
	return s.repo.UpdateAlertStatus(ctx, alertID, status, investigatedBy, notes, actionTaken)
}
