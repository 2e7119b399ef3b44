package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists fraud alerts in PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// Ensure the concrete repository satisfies the service's requirements.
var _ AlertRepository = (*Repository)(nil)

// NewRepository creates a new fraud alert repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateAlert inserts a new fraud alert
func (r *Repository) CreateAlert(ctx context.Context, alert *Alert) error {
	metadataJSON, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal alert metadata: %w", err)
	}

	query := `
		INSERT INTO fraud_alerts (
			id, student_id, qr_code_id, alert_type, severity, status,
			description, metadata, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.StudentID,
		alert.QRCodeID,
		alert.Type,
		alert.Severity,
		alert.Status,
		alert.Description,
		metadataJSON,
		alert.DetectedAt,
	)

	return err
}

// GetAlertByID retrieves a fraud alert by ID
func (r *Repository) GetAlertByID(ctx context.Context, alertID uuid.UUID) (*Alert, error) {
	query := `
		SELECT id, student_id, qr_code_id, alert_type, severity, status,
		       description, metadata, detected_at, investigated_at,
		       investigated_by, resolved_at, notes, action_taken
		FROM fraud_alerts
		WHERE id = $1
	`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, alertID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return alert, nil
}

// GetAlertsByStudent retrieves fraud alerts for a student, newest first,
// with the total count for pagination
func (r *Repository) GetAlertsByStudent(ctx context.Context, studentID int64, limit, offset int) ([]*Alert, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM fraud_alerts WHERE student_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, student_id, qr_code_id, alert_type, severity, status,
		       description, metadata, detected_at, investigated_at,
		       investigated_by, resolved_at, notes, action_taken
		FROM fraud_alerts
		WHERE student_id = $1
		ORDER BY detected_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// severityRankSQL mirrors AlertSeverity.Rank; the severity column is text and
// would otherwise sort alphabetically.
const severityRankSQL = `CASE severity
			WHEN 'CRITICAL' THEN 4
			WHEN 'HIGH' THEN 3
			WHEN 'MEDIUM' THEN 2
			WHEN 'LOW' THEN 1
			ELSE 0
		END`

// GetPendingAlerts retrieves unresolved alerts ordered by severity and recency
func (r *Repository) GetPendingAlerts(ctx context.Context, limit, offset int) ([]*Alert, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM fraud_alerts WHERE status IN ('pending', 'investigating')`
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, student_id, qr_code_id, alert_type, severity, status,
		       description, metadata, detected_at, investigated_at,
		       investigated_by, resolved_at, notes, action_taken
		FROM fraud_alerts
		WHERE status IN ('pending', 'investigating')
		ORDER BY ` + severityRankSQL + ` DESC, detected_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// UpdateAlertStatus advances an alert through the review workflow
func (r *Repository) UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status AlertStatus, investigatedBy, notes, actionTaken string) error {
	query := `
		UPDATE fraud_alerts
		SET status = $2,
		    investigated_at = CASE WHEN NULLIF($3, '') IS NOT NULL THEN NOW() ELSE investigated_at END,
		    investigated_by = COALESCE(NULLIF($3, ''), investigated_by),
		    resolved_at = CASE WHEN $2 IN ('confirmed', 'false_positive', 'resolved') THEN NOW() ELSE resolved_at END,
		    notes = COALESCE(NULLIF($4, ''), notes),
		    action_taken = COALESCE(NULLIF($5, ''), action_taken),
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, alertID, status, investigatedBy, notes, actionTaken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var alert Alert
	var metadataJSON []byte
	var investigatedAt, resolvedAt sql.NullTime
	var investigatedBy, notes, actionTaken sql.NullString

	err := row.Scan(
		&alert.ID,
		&alert.StudentID,
		&alert.QRCodeID,
		&alert.Type,
		&alert.Severity,
		&alert.Status,
		&alert.Description,
		&metadataJSON,
		&alert.DetectedAt,
		&investigatedAt,
		&investigatedBy,
		&resolvedAt,
		&notes,
		&actionTaken,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadataJSON, &alert.Metadata); err != nil {
		alert.Metadata = make(map[string]interface{})
	}
	if investigatedAt.Valid {
		alert.InvestigatedAt = &investigatedAt.Time
	}
	if investigatedBy.Valid {
		alert.InvestigatedBy = investigatedBy.String
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}
	if notes.Valid {
		alert.Notes = notes.String
	}
	if actionTaken.Valid {
		alert.ActionTaken = actionTaken.String
	}

	return &alert, nil
}

func scanAlerts(rows pgx.Rows) ([]*Alert, error) {
	alerts := make([]*Alert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}
