package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/internal/repository"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

type clearanceFormStub struct {
	form          *models.NoDuesForm
	listFilter    models.FormFilter
	updatedStatus *models.FormStatus
	snapshot      []byte
}

func (f *clearanceFormStub) GetByID(ctx context.Context, id string) (*models.NoDuesForm, error) {
	if f.form == nil || f.form.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *f.form
	return &copy, nil
}

func (f *clearanceFormStub) List(ctx context.Context, filter models.FormFilter) ([]models.NoDuesForm, int, error) {
	f.listFilter = filter
	if f.form == nil {
		return nil, 0, nil
	}
	return []models.NoDuesForm{*f.form}, 1, nil
}

func (f *clearanceFormStub) UpdateStatus(ctx context.Context, formID string, status models.FormStatus, rejectionSnapshot []byte) error {
	f.updatedStatus = &status
	f.snapshot = rejectionSnapshot
	return nil
}

type clearanceStatusStub struct {
	rows      []models.DepartmentStatus
	applied   *repository.ActionParams
	actionErr error
}

func (s *clearanceStatusStub) ListByFormID(ctx context.Context, formID string) ([]models.DepartmentStatus, error) {
	out := make([]models.DepartmentStatus, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *clearanceStatusStub) GetByFormAndDepartment(ctx context.Context, formID, departmentName string) (*models.DepartmentStatus, error) {
	for i := range s.rows {
		if strings.EqualFold(s.rows[i].DepartmentName, departmentName) {
			copy := s.rows[i]
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *clearanceStatusStub) ApplyAction(ctx context.Context, params repository.ActionParams) error {
	if s.actionErr != nil {
		return s.actionErr
	}
	s.applied = &params
	for i := range s.rows {
		if s.rows[i].DepartmentName == params.DepartmentName {
			s.rows[i].Status = params.Status
			s.rows[i].RejectionReason = params.RejectionReason
		}
	}
	return nil
}

type catalogStub struct {
	departments []models.Department
}

func (c *catalogStub) ListActive(ctx context.Context) ([]models.Department, error) {
	return c.departments, nil
}

type certStoreStub struct {
	cert *models.Certificate
}

func (c *certStoreStub) Create(ctx context.Context, cert *models.Certificate) error {
	c.cert = cert
	return nil
}

func (c *certStoreStub) GetByFormID(ctx context.Context, formID string) (*models.Certificate, error) {
	if c.cert == nil || c.cert.FormID != formID {
		return nil, sql.ErrNoRows
	}
	return c.cert, nil
}

func (c *certStoreStub) GetBySerial(ctx context.Context, serialNo string) (*models.Certificate, error) {
	if c.cert == nil || c.cert.SerialNo != serialNo {
		return nil, sql.ErrNoRows
	}
	return c.cert, nil
}

type issuerStub struct {
	issued *models.Certificate
	calls  int
}

func (i *issuerStub) Issue(ctx context.Context, form *models.NoDuesForm, rows []models.DepartmentStatus) (*models.Certificate, error) {
	i.calls++
	i.issued = &models.Certificate{ID: "cert-1", FormID: form.ID, SerialNo: "NDC-2026-" + form.RegistrationNo}
	return i.issued, nil
}

func clearanceFixture() (*clearanceFormStub, *clearanceStatusStub, *issuerStub, *publisherStub, *ClearanceService) {
	forms := &clearanceFormStub{form: &models.NoDuesForm{
		ID:             "form-1",
		RegistrationNo: "REG1001",
		StudentName:    "Asha Verma",
		Status:         models.FormStatusInProgress,
	}}
	statuses := &clearanceStatusStub{rows: []models.DepartmentStatus{
		{FormID: "form-1", DepartmentName: "Library", Status: models.DepartmentStatusPending},
		{FormID: "form-1", DepartmentName: "Hostel", Status: models.DepartmentStatusApproved},
	}}
	issuer := &issuerStub{}
	publisher := &publisherStub{}
	svc := NewClearanceService(forms, statuses, &catalogStub{}, &certStoreStub{}, issuer, publisher, nil, nil, nil)
	return forms, statuses, issuer, publisher, svc
}

func TestApproveLastPendingDepartmentCompletesForm(t *testing.T) {
	forms, statuses, issuer, publisher, svc := clearanceFixture()

	result, err := svc.ApproveDepartment(context.Background(), "form-1", "Library", "staff-7")
	require.NoError(t, err)
	require.Equal(t, models.DepartmentStatusApproved, result.DepartmentStatus)
	require.Equal(t, models.FormStatusCompleted, result.FormStatus)
	require.Equal(t, "cert-1", result.CertificateID)
	require.Equal(t, 1, issuer.calls)

	require.NotNil(t, statuses.applied)
	require.Equal(t, "staff-7", statuses.applied.ActionByUserID)
	require.NotNil(t, forms.updatedStatus)
	require.Equal(t, models.FormStatusCompleted, *forms.updatedStatus)
	require.Nil(t, forms.snapshot)

	require.Len(t, publisher.events, 1)
	require.Equal(t, models.EventStatusChanged, publisher.events[0].Type)
	require.Equal(t, models.FormStatusCompleted, publisher.events[0].NewFormStatus)
}

func TestRejectDepartmentStoresSnapshot(t *testing.T) {
	forms, _, issuer, _, svc := clearanceFixture()

	result, err := svc.RejectDepartment(context.Background(), "form-1", "Library", "staff-7", "library fine pending")
	require.NoError(t, err)
	require.Equal(t, models.DepartmentStatusRejected, result.DepartmentStatus)
	require.Equal(t, models.FormStatusRejected, result.FormStatus)
	require.Zero(t, issuer.calls)

	require.NotNil(t, forms.updatedStatus)
	require.Equal(t, models.FormStatusRejected, *forms.updatedStatus)

	var snapshot []models.DepartmentStatusSnapshot
	require.NoError(t, json.Unmarshal(forms.snapshot, &snapshot))
	require.Len(t, snapshot, 2)
}

func TestRejectRequiresReason(t *testing.T) {
	_, statuses, _, _, svc := clearanceFixture()
	_, err := svc.RejectDepartment(context.Background(), "form-1", "Library", "staff-7", "   ")
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
	require.Nil(t, statuses.applied)
}

func TestDecisionOnNonPendingRow(t *testing.T) {
	_, _, _, _, svc := clearanceFixture()
	_, err := svc.ApproveDepartment(context.Background(), "form-1", "Hostel", "staff-7")
	requireErrorCode(t, err, appErrors.ErrInvalidState.Code)
}

func TestDecisionOnCompletedForm(t *testing.T) {
	forms, _, _, _, svc := clearanceFixture()
	forms.form.Status = models.FormStatusCompleted
	_, err := svc.ApproveDepartment(context.Background(), "form-1", "Library", "staff-7")
	requireErrorCode(t, err, appErrors.ErrFormTerminal.Code)
}

func TestDecisionLostRace(t *testing.T) {
	_, statuses, _, _, svc := clearanceFixture()
	statuses.actionErr = sql.ErrNoRows
	_, err := svc.ApproveDepartment(context.Background(), "form-1", "Library", "staff-7")
	requireErrorCode(t, err, appErrors.ErrConcurrentModification.Code)
}

func TestListFormsScopesStaffToOwnDepartment(t *testing.T) {
	forms, _, _, _, svc := clearanceFixture()

	claims := &models.JWTClaims{UserID: "staff-7", Role: models.RoleStaff, DepartmentName: "Library"}
	_, pagination, err := svc.ListForms(context.Background(), claims, dto.FormListQuery{DepartmentName: "Hostel"})
	require.NoError(t, err)
	require.Equal(t, "Library", forms.listFilter.DepartmentName)
	require.Equal(t, 1, pagination.TotalCount)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, _, err = svc.ListForms(context.Background(), admin, dto.FormListQuery{DepartmentName: "Hostel"})
	require.NoError(t, err)
	require.Equal(t, "Hostel", forms.listFilter.DepartmentName)
}

func TestListFormsStaffWithoutDepartment(t *testing.T) {
	_, _, _, _, svc := clearanceFixture()
	claims := &models.JWTClaims{UserID: "staff-7", Role: models.RoleStaff}
	_, _, err := svc.ListForms(context.Background(), claims, dto.FormListQuery{})
	requireErrorCode(t, err, appErrors.ErrForbidden.Code)
}
