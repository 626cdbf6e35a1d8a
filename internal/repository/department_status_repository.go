package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

const departmentStatusColumns = `id, form_id, department_name, status, rejection_reason,
       rejection_count, action_at, action_by_user_id, created_at, updated_at`

// DepartmentStatusRepository persists no_dues_status rows (one per form x
// department).
type DepartmentStatusRepository struct {
	db *sqlx.DB
}

// NewDepartmentStatusRepository constructs the repository.
func NewDepartmentStatusRepository(db *sqlx.DB) *DepartmentStatusRepository {
	return &DepartmentStatusRepository{db: db}
}

// ListByFormID returns all department rows for a form.
func (r *DepartmentStatusRepository) ListByFormID(ctx context.Context, formID string) ([]models.DepartmentStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM no_dues_status WHERE form_id = $1 ORDER BY department_name`, departmentStatusColumns)
	var rows []models.DepartmentStatus
	if err := r.db.SelectContext(ctx, &rows, query, formID); err != nil {
		return nil, fmt.Errorf("list department statuses: %w", err)
	}
	return rows, nil
}

// GetByFormAndDepartment fetches a single department row.
func (r *DepartmentStatusRepository) GetByFormAndDepartment(ctx context.Context, formID, departmentName string) (*models.DepartmentStatus, error) {
	query := fmt.Sprintf(`SELECT %s FROM no_dues_status WHERE form_id = $1 AND department_name = $2`, departmentStatusColumns)
	var row models.DepartmentStatus
	if err := r.db.GetContext(ctx, &row, query, formID, departmentName); err != nil {
		return nil, err
	}
	return &row, nil
}

// ResetForReapplication moves a rejected row back to pending, clears the
// staff action fields and increments the per-department counter. The UPDATE
// is guarded on the row still being rejected; a concurrent reset surfaces as
// sql.ErrNoRows so the caller can report a conflict instead of
// double-incrementing.
func (r *DepartmentStatusRepository) ResetForReapplication(ctx context.Context, formID, departmentName string) error {
	query := fmt.Sprintf(`UPDATE no_dues_status
	SET status = '%s', rejection_reason = NULL, action_at = NULL, action_by_user_id = NULL,
	    rejection_count = rejection_count + 1, updated_at = $3
	WHERE form_id = $1 AND department_name = $2 AND status = '%s'`,
		models.DepartmentStatusPending, models.DepartmentStatusRejected)
	result, err := r.db.ExecContext(ctx, query, formID, departmentName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset department status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check department reset rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ActionParams groups a staff approve/reject decision.
type ActionParams struct {
	FormID          string
	DepartmentName  string
	Status          models.DepartmentStatusValue
	RejectionReason *string
	ActionByUserID  string
	ActionAt        time.Time
}

// ApplyAction records a staff decision on a pending row. Guarded on the row
// still being pending so two simultaneous decisions cannot both land.
func (r *DepartmentStatusRepository) ApplyAction(ctx context.Context, params ActionParams) error {
	query := fmt.Sprintf(`UPDATE no_dues_status
	SET status = $3, rejection_reason = $4, action_at = $5, action_by_user_id = $6, updated_at = $5
	WHERE form_id = $1 AND department_name = $2 AND status = '%s'`, models.DepartmentStatusPending)
	result, err := r.db.ExecContext(ctx, query,
		params.FormID, params.DepartmentName, params.Status, params.RejectionReason, params.ActionAt, params.ActionByUserID)
	if err != nil {
		return fmt.Errorf("apply department action: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check department action rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
