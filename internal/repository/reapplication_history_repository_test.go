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

func TestReapplicationHistoryRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReapplicationHistoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO no_dues_reapplication_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	department := "Library"
	entry := &models.ReapplicationHistoryEntry{
		FormID:              "form-1",
		ReapplicationNumber: 3,
		DepartmentName:      &department,
		StudentMessage:      "Books returned on Monday, receipt attached.",
		RejectedDepartments: []byte(`[{"department_name":"Library"}]`),
		PreviousStatus:      []byte(`[]`),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReapplicationHistoryRepositoryListByFormID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReapplicationHistoryRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "form_id", "reapplication_number", "department_name", "student_message",
		"edited_fields", "rejected_departments", "previous_status", "created_at",
	}).
		AddRow("hist-2", "form-1", 2, "Library", "Second attempt message.", nil, []byte(`[]`), []byte(`[]`), now).
		AddRow("hist-1", "form-1", 1, nil, "First attempt message.", nil, []byte(`[]`), []byte(`[]`), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, form_id, reapplication_number")).
		WithArgs("form-1").
		WillReturnRows(rows)

	entries, err := repo.ListByFormID(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, entries[0].ReapplicationNumber)
	require.NotNil(t, entries[0].DepartmentName)
	require.Nil(t, entries[1].DepartmentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
