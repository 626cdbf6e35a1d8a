package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

func requireErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, appErrors.FromError(err).Code)
}

func TestCheckReapplyEligibilityMissingRow(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusRejected}
	err := CheckReapplyEligibility(form, nil, 5)
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCheckReapplyEligibilityCompletedFormIsTerminal(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusCompleted}
	row := &models.DepartmentStatus{
		DepartmentName: "Library",
		Status:         models.DepartmentStatusRejected,
	}
	err := CheckReapplyEligibility(form, row, 5)
	requireErrorCode(t, err, appErrors.ErrFormTerminal.Code)
}

func TestCheckReapplyEligibilityNonRejectedRow(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusInProgress}
	for _, status := range []models.DepartmentStatusValue{
		models.DepartmentStatusPending,
		models.DepartmentStatusApproved,
	} {
		row := &models.DepartmentStatus{DepartmentName: "Hostel", Status: status}
		err := CheckReapplyEligibility(form, row, 5)
		requireErrorCode(t, err, appErrors.ErrInvalidState.Code)
	}
}

func TestCheckReapplyEligibilityLimitReached(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusRejected}
	row := &models.DepartmentStatus{
		DepartmentName: "Accounts",
		Status:         models.DepartmentStatusRejected,
		RejectionCount: 5,
	}
	err := CheckReapplyEligibility(form, row, 5)
	requireErrorCode(t, err, appErrors.ErrLimitExceeded.Code)

	details := appErrors.FromError(err).Details
	require.NotNil(t, details)
	require.Equal(t, true, details["can_request_override"])
}

func TestCheckReapplyEligibilityLastAttemptAllowed(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusRejected}
	row := &models.DepartmentStatus{
		DepartmentName: "Accounts",
		Status:         models.DepartmentStatusRejected,
		RejectionCount: 4,
	}
	require.NoError(t, CheckReapplyEligibility(form, row, 5))
}

func TestCheckReapplyEligibilityDefaultLimit(t *testing.T) {
	form := &models.NoDuesForm{Status: models.FormStatusRejected}
	row := &models.DepartmentStatus{
		DepartmentName: "Sports",
		Status:         models.DepartmentStatusRejected,
		RejectionCount: DefaultMaxReapplicationsPerDepartment,
	}
	err := CheckReapplyEligibility(form, row, 0)
	requireErrorCode(t, err, appErrors.ErrLimitExceeded.Code)
}
