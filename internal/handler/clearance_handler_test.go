package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/middleware"
	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

type clearanceServiceMock struct {
	result    *dto.DepartmentActionResult
	actionErr error
	rejected  struct {
		department string
		reason     string
	}
}

func (m *clearanceServiceMock) ListForms(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]models.NoDuesForm, *models.Pagination, error) {
	return []models.NoDuesForm{{ID: "form-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *clearanceServiceMock) GetForm(ctx context.Context, formID string) (*dto.FormDetail, error) {
	if formID != "form-1" {
		return nil, appErrors.ErrNotFound
	}
	return &dto.FormDetail{Form: models.NoDuesForm{ID: "form-1"}}, nil
}

func (m *clearanceServiceMock) ApproveDepartment(ctx context.Context, formID, departmentName, actorUserID string) (*dto.DepartmentActionResult, error) {
	if m.actionErr != nil {
		return nil, m.actionErr
	}
	return m.result, nil
}

func (m *clearanceServiceMock) RejectDepartment(ctx context.Context, formID, departmentName, actorUserID, reason string) (*dto.DepartmentActionResult, error) {
	m.rejected.department = departmentName
	m.rejected.reason = reason
	if m.actionErr != nil {
		return nil, m.actionErr
	}
	return m.result, nil
}

func (m *clearanceServiceMock) ExportQueueCSV(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]byte, error) {
	return []byte("registration_no\nREG1001\n"), nil
}

func staffContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return w, c
}

func TestClearanceHandlerListRequiresClaims(t *testing.T) {
	handler := NewClearanceHandler(&clearanceServiceMock{})
	w, c := staffContext(t, http.MethodGet, "/forms", nil, nil)
	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClearanceHandlerList(t *testing.T) {
	handler := NewClearanceHandler(&clearanceServiceMock{})
	claims := &models.JWTClaims{UserID: "staff-7", Role: models.RoleStaff, DepartmentName: "Library"}
	w, c := staffContext(t, http.MethodGet, "/forms?page=1", nil, claims)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success    bool               `json:"success"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotNil(t, envelope.Pagination)
	require.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestClearanceHandlerApproveForeignDepartment(t *testing.T) {
	handler := NewClearanceHandler(&clearanceServiceMock{})
	claims := &models.JWTClaims{UserID: "staff-7", Role: models.RoleStaff, DepartmentName: "Library"}
	w, c := staffContext(t, http.MethodPost, "/forms/form-1/departments/Hostel/approve", nil, claims)
	c.Params = gin.Params{{Key: "id", Value: "form-1"}, {Key: "department", Value: "Hostel"}}

	handler.Approve(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestClearanceHandlerApproveOwnDepartment(t *testing.T) {
	mock := &clearanceServiceMock{result: &dto.DepartmentActionResult{
		DepartmentName:   "Library",
		DepartmentStatus: models.DepartmentStatusApproved,
		FormStatus:       models.FormStatusInProgress,
	}}
	handler := NewClearanceHandler(mock)
	claims := &models.JWTClaims{UserID: "staff-7", Role: models.RoleStaff, DepartmentName: "Library"}
	w, c := staffContext(t, http.MethodPost, "/forms/form-1/departments/Library/approve", nil, claims)
	c.Params = gin.Params{{Key: "id", Value: "form-1"}, {Key: "department", Value: "Library"}}

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestClearanceHandlerRejectPassesReason(t *testing.T) {
	mock := &clearanceServiceMock{result: &dto.DepartmentActionResult{
		DepartmentName:   "Library",
		DepartmentStatus: models.DepartmentStatusRejected,
		FormStatus:       models.FormStatusRejected,
	}}
	handler := NewClearanceHandler(mock)
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	body, _ := json.Marshal(dto.DepartmentActionRequest{Reason: "library fine pending"})
	w, c := staffContext(t, http.MethodPost, "/forms/form-1/departments/Library/reject", body, claims)
	c.Params = gin.Params{{Key: "id", Value: "form-1"}, {Key: "department", Value: "Library"}}

	handler.Reject(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Library", mock.rejected.department)
	require.Equal(t, "library fine pending", mock.rejected.reason)
}

func TestClearanceHandlerGetUnknownForm(t *testing.T) {
	handler := NewClearanceHandler(&clearanceServiceMock{})
	w, c := staffContext(t, http.MethodGet, "/forms/form-9", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "form-9"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearanceHandlerExport(t *testing.T) {
	handler := NewClearanceHandler(&clearanceServiceMock{})
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	w, c := staffContext(t, http.MethodGet, "/forms/export", nil, claims)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "REG1001")
}
