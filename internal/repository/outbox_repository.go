package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

// OutboxRepository persists the notification outbox. Entries are written in
// the request path and drained asynchronously by the dispatcher workers.
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository constructs the repository.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create inserts a pending outbox entry.
func (r *OutboxRepository) Create(ctx context.Context, entry *models.NotificationOutboxEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.OutboxStatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_outbox
	(id, event_type, payload, status, attempts, last_error, created_at, sent_at)
	VALUES (:id, :event_type, :payload, :status, :attempts, :last_error, :created_at, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create outbox entry: %w", err)
	}
	return nil
}

// ListPending returns the oldest undelivered entries.
func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]models.NotificationOutboxEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, event_type, payload, status, attempts, last_error, created_at, sent_at
	FROM notification_outbox
	WHERE status = '%s'
	ORDER BY created_at
	LIMIT %d`, models.OutboxStatusPending, limit)
	var entries []models.NotificationOutboxEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}
	return entries, nil
}

// MarkSent finalises a delivered entry.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	const query = `UPDATE notification_outbox
	SET status = $2, attempts = attempts + 1, sent_at = $3, last_error = NULL
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.OutboxStatusSent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark outbox entry sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check outbox sent rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordFailure increments the attempt counter, storing the error. Once the
// attempt cap is reached the entry is marked failed and no longer picked up.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id, lastError string, maxAttempts int) error {
	query := fmt.Sprintf(`UPDATE notification_outbox
	SET attempts = attempts + 1,
	    last_error = $2,
	    status = CASE WHEN attempts + 1 >= %d THEN '%s' ELSE '%s' END
	WHERE id = $1`, maxAttempts, models.OutboxStatusFailed, models.OutboxStatusPending)
	if _, err := r.db.ExecContext(ctx, query, id, lastError); err != nil {
		return fmt.Errorf("record outbox failure: %w", err)
	}
	return nil
}
