package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

const formColumns = `id, registration_no, student_name, parent_name, admission_year, passing_year,
       school, course, branch, country_code, contact_no, personal_email, college_email,
       status, reapplication_count, last_reapplied_at, is_reapplication, rejection_snapshot,
       created_at, updated_at`

// editableFormColumns maps sanitized field names to their columns. Anything
// outside this map is silently dropped; the sanitizer has already rejected
// protected fields upstream.
var editableFormColumns = map[string]string{
	"student_name":   "student_name",
	"parent_name":    "parent_name",
	"admission_year": "admission_year",
	"passing_year":   "passing_year",
	"school":         "school",
	"course":         "course",
	"branch":         "branch",
	"country_code":   "country_code",
	"contact_no":     "contact_no",
	"personal_email": "personal_email",
	"college_email":  "college_email",
}

func qualifyColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// FormRepository persists no_dues_forms rows.
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository constructs the repository.
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// GetByRegistrationNo fetches a form by its normalized registration number.
func (r *FormRepository) GetByRegistrationNo(ctx context.Context, registrationNo string) (*models.NoDuesForm, error) {
	query := fmt.Sprintf(`SELECT %s FROM no_dues_forms WHERE registration_no = $1`, formColumns)
	var form models.NoDuesForm
	if err := r.db.GetContext(ctx, &form, query, registrationNo); err != nil {
		return nil, err
	}
	return &form, nil
}

// GetByID fetches a form by identifier.
func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.NoDuesForm, error) {
	query := fmt.Sprintf(`SELECT %s FROM no_dues_forms WHERE id = $1`, formColumns)
	var form models.NoDuesForm
	if err := r.db.GetContext(ctx, &form, query, id); err != nil {
		return nil, err
	}
	return &form, nil
}

// List returns forms matching the staff queue filter plus a total count.
func (r *FormRepository) List(ctx context.Context, filter models.FormFilter) ([]models.NoDuesForm, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(f.registration_no LIKE $%d OR UPPER(f.student_name) LIKE $%d)", len(args), len(args)))
	}
	joinClause := ""
	if filter.DepartmentName != "" {
		args = append(args, filter.DepartmentName)
		joinClause = " JOIN no_dues_status s ON s.form_id = f.id"
		conditions = append(conditions, fmt.Sprintf("s.department_name = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(DISTINCT f.id) FROM no_dues_forms f" + joinClause + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count forms: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM no_dues_forms f%s%s ORDER BY f.created_at DESC LIMIT %d OFFSET %d",
		qualifyColumns("f", formColumns), joinClause, whereClause, pageSize, (page-1)*pageSize)

	var forms []models.NoDuesForm
	if err := r.db.SelectContext(ctx, &forms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list forms: %w", err)
	}
	return forms, total, nil
}

// ReapplyFormParams groups the form-level mutations of an accepted
// reapplication.
type ReapplyFormParams struct {
	FormID          string
	SanitizedFields map[string]string
	Status          models.FormStatus
	LastReappliedAt time.Time
}

// ApplyReapplication merges sanitized fields, bumps the global counter, marks
// the form as a reapplication, forces the aggregate status and clears the
// stored rejection context in a single UPDATE.
func (r *FormRepository) ApplyReapplication(ctx context.Context, params ReapplyFormParams) error {
	setParts := []string{
		"status = :status",
		"reapplication_count = reapplication_count + 1",
		"last_reapplied_at = :last_reapplied_at",
		"is_reapplication = TRUE",
		"rejection_snapshot = NULL",
		"updated_at = :last_reapplied_at",
	}
	namedArgs := map[string]interface{}{
		"id":                params.FormID,
		"status":            params.Status,
		"last_reapplied_at": params.LastReappliedAt,
	}
	for field, value := range params.SanitizedFields {
		column, ok := editableFormColumns[field]
		if !ok {
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = :%s", column, column))
		namedArgs[column] = value
	}

	query := fmt.Sprintf("UPDATE no_dues_forms SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, namedArgs)
	if err != nil {
		return fmt.Errorf("apply reapplication to form: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check form update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the aggregate status, optionally storing the rejection
// context snapshot shown to the student (nil clears it).
func (r *FormRepository) UpdateStatus(ctx context.Context, formID string, status models.FormStatus, rejectionSnapshot []byte) error {
	const query = `UPDATE no_dues_forms
	SET status = $2, rejection_snapshot = $3, updated_at = $4
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, formID, status, rejectionSnapshot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update form status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check form status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
