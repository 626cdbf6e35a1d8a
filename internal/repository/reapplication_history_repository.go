package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

// ReapplicationHistoryRepository persists the append-only
// no_dues_reapplication_history audit trail. Rows are never updated or
// deleted.
type ReapplicationHistoryRepository struct {
	db *sqlx.DB
}

// NewReapplicationHistoryRepository constructs the repository.
func NewReapplicationHistoryRepository(db *sqlx.DB) *ReapplicationHistoryRepository {
	return &ReapplicationHistoryRepository{db: db}
}

// Create inserts a new history entry.
func (r *ReapplicationHistoryRepository) Create(ctx context.Context, entry *models.ReapplicationHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO no_dues_reapplication_history
	(id, form_id, reapplication_number, department_name, student_message, edited_fields, rejected_departments, previous_status, created_at)
	VALUES (:id, :form_id, :reapplication_number, :department_name, :student_message, :edited_fields, :rejected_departments, :previous_status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create reapplication history entry: %w", err)
	}
	return nil
}

// ListByFormID returns a form's reapplication history, latest first.
func (r *ReapplicationHistoryRepository) ListByFormID(ctx context.Context, formID string) ([]models.ReapplicationHistoryEntry, error) {
	const query = `SELECT id, form_id, reapplication_number, department_name, student_message,
       edited_fields, rejected_departments, previous_status, created_at
	FROM no_dues_reapplication_history
	WHERE form_id = $1
	ORDER BY reapplication_number DESC`
	var entries []models.ReapplicationHistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, formID); err != nil {
		return nil, fmt.Errorf("list reapplication history: %w", err)
	}
	return entries, nil
}
