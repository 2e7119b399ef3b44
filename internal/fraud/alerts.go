package fraud

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	signalAlertThreshold = 0.7
	signalHighThreshold  = 0.9
)

// GenerateAlerts converts threshold breaches on a score into typed alerts.
// Multiple alerts may fire from one evaluation; they are independent.
// Behavior and photo signals contribute to the overall score only and never
// raise alerts of their own.
func (d *Detector) GenerateAlerts(score *Score, sctx *SecurityContext) []*Alert {
	now := d.now()
	var alerts []*Alert

	if score.Overall >= d.thresholds.Critical {
		alerts = append(alerts, newAlert(sctx, now,
			AlertTypeSuspiciousPattern, AlertSeverityCritical,
			fmt.Sprintf("Overall fraud score %.2f at or above critical threshold", score.Overall),
			map[string]interface{}{
				"score":   score.Overall,
				"factors": score.Factors,
			}))
	}

	type signalAlert struct {
		value       float64
		alertType   AlertType
		name        string
		description string
	}
	for _, s := range []signalAlert{
		{score.Location, AlertTypeLocationSpoofing, "location", "Location signals indicate GPS spoofing"},
		{score.Device, AlertTypeDeviceSharing, "device", "Device signals indicate account sharing or automation"},
		{score.Time, AlertTypeTimeManipulation, "time", "Time signals indicate clock manipulation or flooding"},
	} {
		if s.value < signalAlertThreshold {
			continue
		}
		severity := AlertSeverityMedium
		if s.value >= signalHighThreshold {
			severity = AlertSeverityHigh
		}
		alerts = append(alerts, newAlert(sctx, now, s.alertType, severity,
			fmt.Sprintf("%s (score %.2f)", s.description, s.value),
			map[string]interface{}{
				"score":   s.value,
				"factors": score.SignalFactors[s.name],
			}))
	}

	return alerts
}

func newAlert(sctx *SecurityContext, now time.Time, alertType AlertType, severity AlertSeverity, description string, metadata map[string]interface{}) *Alert {
	return &Alert{
		ID:          uuid.New(),
		StudentID:   sctx.StudentID,
		QRCodeID:    sctx.QRCodeID,
		Type:        alertType,
		Severity:    severity,
		Status:      AlertStatusPending,
		Description: description,
		Metadata:    metadata,
		DetectedAt:  now,
	}
}
