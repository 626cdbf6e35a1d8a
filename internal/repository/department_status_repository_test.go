package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/models"
)

var statusRowColumns = []string{
	"id", "form_id", "department_name", "status", "rejection_reason",
	"rejection_count", "action_at", "action_by_user_id", "created_at", "updated_at",
}

func TestDepartmentStatusRepositoryListByFormID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDepartmentStatusRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(statusRowColumns).
		AddRow("row-1", "form-1", "Accounts", "pending", nil, 0, nil, nil, now, now).
		AddRow("row-2", "form-1", "Library", "rejected", "books outstanding", 1, now, "staff-7", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, form_id, department_name")).
		WithArgs("form-1").
		WillReturnRows(rows)

	statuses, err := repo.ListByFormID(context.Background(), "form-1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, models.DepartmentStatusRejected, statuses[1].Status)
	require.Equal(t, 1, statuses[1].RejectionCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentStatusRepositoryResetForReapplication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDepartmentStatusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_dues_status")).
		WithArgs("form-1", "Library", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetForReapplication(context.Background(), "form-1", "Library"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentStatusRepositoryResetLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	// The row is no longer rejected, so the guarded UPDATE touches nothing.
	repo := NewDepartmentStatusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_dues_status")).
		WithArgs("form-1", "Library", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ResetForReapplication(context.Background(), "form-1", "Library")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDepartmentStatusRepositoryApplyAction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDepartmentStatusRepository(db)
	reason := "library fine pending"
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_dues_status")).
		WithArgs("form-1", "Library", "rejected", &reason, now, "staff-7").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyAction(context.Background(), ActionParams{
		FormID:          "form-1",
		DepartmentName:  "Library",
		Status:          models.DepartmentStatusRejected,
		RejectionReason: &reason,
		ActionByUserID:  "staff-7",
		ActionAt:        now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentStatusRepositoryApplyActionAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDepartmentStatusRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE no_dues_status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyAction(context.Background(), ActionParams{
		FormID:         "form-1",
		DepartmentName: "Library",
		Status:         models.DepartmentStatusApproved,
		ActionByUserID: "staff-7",
		ActionAt:       time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
}
