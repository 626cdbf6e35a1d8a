package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

func TestOutboxRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutboxRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notification_outbox")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.NotificationOutboxEntry{
		EventType: models.EventReapplicationProcessed,
		Payload:   []byte(`{"form_id":"form-1"}`),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.Equal(t, models.OutboxStatusPending, entry.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutboxRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "event_type", "payload", "status", "attempts", "last_error", "created_at", "sent_at"}).
		AddRow("outbox-1", "reapplication_processed", []byte(`{}`), "pending", 0, nil, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_type, payload")).
		WillReturnRows(rows)

	entries, err := repo.ListPending(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.EventReapplicationProcessed, entries[0].EventType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryMarkSent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutboxRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notification_outbox")).
		WithArgs("outbox-1", "sent", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSent(context.Background(), "outbox-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryRecordFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOutboxRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notification_outbox")).
		WithArgs("outbox-1", "smtp unavailable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordFailure(context.Background(), "outbox-1", "smtp unavailable", 3))
	require.NoError(t, mock.ExpectationsWereMet())
}
