package fraud

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies an overall fraud score against configured thresholds.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// AlertType identifies the kind of fraud finding
type AlertType string

const (
	AlertTypeSuspiciousPattern AlertType = "SUSPICIOUS_PATTERN"
	AlertTypeLocationSpoofing  AlertType = "LOCATION_SPOOFING"
	AlertTypeDeviceSharing     AlertType = "DEVICE_SHARING"
	AlertTypeTimeManipulation  AlertType = "TIME_MANIPULATION"
)

// AlertSeverity ranks how urgent a fraud alert is
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Rank orders severities for sorting; higher is more urgent. The text values
// do not sort meaningfully, so any severity ordering must go through this.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityCritical:
		return 4
	case AlertSeverityHigh:
		return 3
	case AlertSeverityMedium:
		return 2
	case AlertSeverityLow:
		return 1
	default:
		return 0
	}
}

// AlertStatus tracks the review workflow of a persisted alert
type AlertStatus string

const (
	AlertStatusPending       AlertStatus = "pending"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusConfirmed     AlertStatus = "confirmed"
	AlertStatusFalsePositive AlertStatus = "false_positive"
	AlertStatusResolved      AlertStatus = "resolved"
)

// LocationData is a GPS reading supplied with a check-in attempt. Accuracy is
// the reported GPS accuracy in meters; values near zero are as suspicious as
// very large ones.
type LocationData struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceFingerprint identifies the originating device/browser. ID is a stable
// hash across sessions for the same device.
type DeviceFingerprint struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// SecurityContext is one check-in attempt under evaluation. Timestamp is the
// client-reported time, which is untrusted and compared against the server
// clock by the time analyzer.
type SecurityContext struct {
	StudentID int64              `json:"student_id"`
	QRCodeID  string             `json:"qr_code_id"`
	SessionID string             `json:"session_id"`
	Timestamp time.Time          `json:"timestamp"`
	Location  *LocationData      `json:"location,omitempty"`
	Device    *DeviceFingerprint `json:"device,omitempty"`
}

// Score is the output of one fraud evaluation. Component scores are in [0,1]
// and default to 0 when the corresponding input was absent.
type Score struct {
	Location   float64   `json:"location"`
	Device     float64   `json:"device"`
	Time       float64   `json:"time"`
	Behavior   float64   `json:"behavior"`
	Photo      float64   `json:"photo"`
	Overall    float64   `json:"overall"`
	Confidence float64   `json:"confidence"`
	RiskLevel  RiskLevel `json:"risk_level"`

	// Factors names the checks that fired, for every signal whose score
	// exceeded the mention cutoff.
	Factors []string `json:"factors"`

	// SignalFactors keeps each signal's factors separately so alert metadata
	// can attribute findings to the component that produced them.
	SignalFactors map[string][]string `json:"signal_factors,omitempty"`
}

// Alert is a materialized, persistable fraud finding.
type Alert struct {
	ID          uuid.UUID              `json:"id"`
	StudentID   int64                  `json:"student_id"`
	QRCodeID    string                 `json:"qr_code_id"`
	Type        AlertType              `json:"type"`
	Severity    AlertSeverity          `json:"severity"`
	Status      AlertStatus            `json:"status"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
	DetectedAt  time.Time              `json:"detected_at"`

	// Review workflow, persistence-side only.
	InvestigatedAt *time.Time `json:"investigated_at,omitempty"`
	InvestigatedBy string     `json:"investigated_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	ActionTaken    string     `json:"action_taken,omitempty"`
}

// Weights controls how much each signal contributes to the overall score.
// They need not sum to 1; the scorer normalizes by their sum. Absent signals
// score 0 but their weight stays in the denominator, so missing evidence
// dilutes the overall score rather than inflating the present signals.
type Weights struct {
	Location float64
	Device   float64
	Time     float64
	Behavior float64
	Photo    float64
}

// Sum returns the weight normalization denominator.
func (w Weights) Sum() float64 {
	return w.Location + w.Device + w.Time + w.Behavior + w.Photo
}

// Thresholds classify an overall score into a risk level. Comparisons are
// inclusive: an overall exactly at Critical classifies as CRITICAL.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// Level returns the risk level for an overall score.
func (t Thresholds) Level(overall float64) RiskLevel {
	switch {
	case overall >= t.Critical:
		return RiskLevelCritical
	case overall >= t.High:
		return RiskLevelHigh
	case overall >= t.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}
