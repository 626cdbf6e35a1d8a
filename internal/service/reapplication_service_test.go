package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/internal/repository"
	"github.com/noah-isme/nodues-go-api/pkg/config"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

type formStoreStub struct {
	form         *models.NoDuesForm
	applied      *repository.ReapplyFormParams
	applyErr     error
	getErr       error
	appliedCount int
}

func (f *formStoreStub) GetByRegistrationNo(ctx context.Context, registrationNo string) (*models.NoDuesForm, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.form == nil || f.form.RegistrationNo != registrationNo {
		return nil, sql.ErrNoRows
	}
	copy := *f.form
	return &copy, nil
}

func (f *formStoreStub) ApplyReapplication(ctx context.Context, params repository.ReapplyFormParams) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = &params
	f.appliedCount++
	return nil
}

type statusStoreStub struct {
	rows       []models.DepartmentStatus
	resetDepts []string
	resetErr   error
}

func (s *statusStoreStub) ListByFormID(ctx context.Context, formID string) ([]models.DepartmentStatus, error) {
	out := make([]models.DepartmentStatus, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *statusStoreStub) ResetForReapplication(ctx context.Context, formID, departmentName string) error {
	if s.resetErr != nil {
		return s.resetErr
	}
	s.resetDepts = append(s.resetDepts, departmentName)
	return nil
}

type historyStoreStub struct {
	entries   []*models.ReapplicationHistoryEntry
	createErr error
}

func (h *historyStoreStub) Create(ctx context.Context, entry *models.ReapplicationHistoryEntry) error {
	if h.createErr != nil {
		return h.createErr
	}
	h.entries = append(h.entries, entry)
	return nil
}

func (h *historyStoreStub) ListByFormID(ctx context.Context, formID string) ([]models.ReapplicationHistoryEntry, error) {
	out := make([]models.ReapplicationHistoryEntry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, *e)
	}
	return out, nil
}

type publisherStub struct {
	events []models.NotificationEvent
}

func (p *publisherStub) Publish(ctx context.Context, event models.NotificationEvent) error {
	p.events = append(p.events, event)
	return nil
}

func rejectedReason(reason string) *string {
	return &reason
}

func reapplyFixture() (*formStoreStub, *statusStoreStub, *historyStoreStub, *publisherStub, *ReapplicationService) {
	actionAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	forms := &formStoreStub{form: &models.NoDuesForm{
		ID:                 "form-1",
		RegistrationNo:     "REG1001",
		StudentName:        "Asha Verma",
		School:             "School of Engineering",
		Course:             "B.Tech",
		Branch:             "CSE",
		Status:             models.FormStatusRejected,
		ReapplicationCount: 2,
	}}
	statuses := &statusStoreStub{rows: []models.DepartmentStatus{
		{
			ID:              "row-lib",
			FormID:          "form-1",
			DepartmentName:  "Library",
			Status:          models.DepartmentStatusRejected,
			RejectionReason: rejectedReason("two books outstanding"),
			RejectionCount:  1,
			ActionAt:        &actionAt,
		},
		{
			ID:             "row-hostel",
			FormID:         "form-1",
			DepartmentName: "Hostel",
			Status:         models.DepartmentStatusApproved,
		},
		{
			ID:             "row-accounts",
			FormID:         "form-1",
			DepartmentName: "Accounts",
			Status:         models.DepartmentStatusPending,
		},
	}}
	history := &historyStoreStub{}
	publisher := &publisherStub{}
	svc := NewReapplicationService(forms, statuses, history, publisher, nil, nil, nil, config.ClearanceConfig{
		MaxReapplicationsPerDepartment: 5,
		MinStudentMessageLength:        10,
	})
	return forms, statuses, history, publisher, svc
}

func TestReapplyHappyPath(t *testing.T) {
	forms, statuses, history, publisher, svc := reapplyFixture()

	outcome, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "reg1001",
		DepartmentName:      "library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
		UpdatedFormData: map[string]string{
			"contact_no":   "9876543210",
			"nickname":     "ignored",
			"student_name": "Asha Verma",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Library", outcome.Department)
	require.Equal(t, 2, outcome.ReapplicationAttempt)
	require.Equal(t, 3, outcome.RemainingAttempts)
	require.Equal(t, models.FormStatusPending, outcome.FormStatus)

	// Audit entry comes first and captures the rejection being addressed.
	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	require.Equal(t, "form-1", entry.FormID)
	require.Equal(t, 3, entry.ReapplicationNumber)
	require.NotNil(t, entry.DepartmentName)
	require.Equal(t, "Library", *entry.DepartmentName)

	var rejected []models.RejectedDepartmentSnapshot
	require.NoError(t, json.Unmarshal(entry.RejectedDepartments, &rejected))
	require.Len(t, rejected, 1)
	require.Equal(t, "two books outstanding", rejected[0].Reason)

	var previous []models.DepartmentStatusSnapshot
	require.NoError(t, json.Unmarshal(entry.PreviousStatus, &previous))
	require.Len(t, previous, 3)

	// Unknown fields are dropped before the form update.
	require.NotNil(t, forms.applied)
	require.Equal(t, models.FormStatusPending, forms.applied.Status)
	require.Equal(t, "9876543210", forms.applied.SanitizedFields["contact_no"])
	require.NotContains(t, forms.applied.SanitizedFields, "nickname")

	// Only the targeted department row is reset.
	require.Equal(t, []string{"Library"}, statuses.resetDepts)

	require.Len(t, publisher.events, 1)
	require.Equal(t, models.EventReapplicationProcessed, publisher.events[0].Type)
	require.Equal(t, "Library", publisher.events[0].DepartmentName)
	require.Equal(t, 2, publisher.events[0].AttemptNumber)
}

func TestReapplyShortMessageRejected(t *testing.T) {
	_, _, history, _, svc := reapplyFixture()
	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "   short   ",
	})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
	require.Empty(t, history.entries)
}

func TestReapplyUnknownRegistration(t *testing.T) {
	_, _, _, _, svc := reapplyFixture()
	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG9999",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestReapplyUnknownDepartment(t *testing.T) {
	_, _, _, _, svc := reapplyFixture()
	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Cafeteria",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}

func TestReapplyNonRejectedDepartment(t *testing.T) {
	_, statuses, history, _, svc := reapplyFixture()
	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Hostel",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrInvalidState.Code)
	require.Empty(t, history.entries)
	require.Empty(t, statuses.resetDepts)
}

func TestReapplyCompletedFormIsTerminal(t *testing.T) {
	forms, _, history, _, svc := reapplyFixture()
	forms.form.Status = models.FormStatusCompleted

	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrFormTerminal.Code)
	require.Empty(t, history.entries)
}

func TestReapplyLimitExceeded(t *testing.T) {
	_, statuses, history, _, svc := reapplyFixture()
	statuses.rows[0].RejectionCount = 5

	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrLimitExceeded.Code)
	require.Empty(t, history.entries)
}

func TestReapplyProtectedFieldRejectedBeforeAnyWrite(t *testing.T) {
	forms, statuses, history, _, svc := reapplyFixture()

	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
		UpdatedFormData: map[string]string{
			"student_name":        "Asha Verma",
			"reapplication_count": "0",
		},
	})
	requireErrorCode(t, err, appErrors.ErrProtectedField.Code)
	require.Empty(t, history.entries)
	require.Nil(t, forms.applied)
	require.Empty(t, statuses.resetDepts)
}

func TestReapplyConcurrentReset(t *testing.T) {
	forms, statuses, history, publisher, svc := reapplyFixture()
	statuses.resetErr = sql.ErrNoRows

	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrConcurrentModification.Code)

	// The write-ahead audit entry and the form update stay as evidence.
	require.Len(t, history.entries, 1)
	require.Equal(t, 1, forms.appliedCount)
	require.Empty(t, publisher.events)
}

func TestReapplyHistoryWriteFailureStopsProcessing(t *testing.T) {
	forms, statuses, history, _, svc := reapplyFixture()
	history.createErr = sql.ErrConnDone

	_, err := svc.Reapply(context.Background(), dto.SubmitReapplicationRequest{
		RegistrationNo:      "REG1001",
		DepartmentName:      "Library",
		StudentReplyMessage: "Books returned on Monday, receipt attached.",
	})
	requireErrorCode(t, err, appErrors.ErrPersistence.Code)
	require.Nil(t, forms.applied)
	require.Empty(t, statuses.resetDepts)
}

func TestStatusReportsEligibilityPerDepartment(t *testing.T) {
	_, _, history, _, svc := reapplyFixture()
	history.entries = append(history.entries, &models.ReapplicationHistoryEntry{
		ID:                  "hist-1",
		FormID:              "form-1",
		ReapplicationNumber: 2,
		StudentMessage:      "Earlier dues cleared at the counter.",
	})

	resp, err := svc.Status(context.Background(), "reg1001")
	require.NoError(t, err)
	require.Equal(t, "form-1", resp.FormID)
	require.Equal(t, 2, resp.GlobalReapplicationCount)
	require.Len(t, resp.Departments, 3)
	require.Len(t, resp.PerDepartmentHistory, 1)

	byName := make(map[string]dto.DepartmentReapplyState, len(resp.Departments))
	for _, d := range resp.Departments {
		byName[d.DepartmentName] = d
	}
	require.True(t, byName["Library"].CanReapply)
	require.Equal(t, 4, byName["Library"].RemainingAttempts)
	require.False(t, byName["Hostel"].CanReapply)
	require.False(t, byName["Accounts"].CanReapply)
}
