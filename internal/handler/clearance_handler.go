package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/response"
)

type clearanceService interface {
	ListForms(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]models.NoDuesForm, *models.Pagination, error)
	GetForm(ctx context.Context, formID string) (*dto.FormDetail, error)
	ApproveDepartment(ctx context.Context, formID, departmentName, actorUserID string) (*dto.DepartmentActionResult, error)
	RejectDepartment(ctx context.Context, formID, departmentName, actorUserID, reason string) (*dto.DepartmentActionResult, error)
	ExportQueueCSV(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]byte, error)
}

// ClearanceHandler exposes the staff review queue and decision endpoints.
type ClearanceHandler struct {
	service clearanceService
}

// NewClearanceHandler constructs the handler.
func NewClearanceHandler(service clearanceService) *ClearanceHandler {
	return &ClearanceHandler{service: service}
}

func listQueryFromContext(c *gin.Context) dto.FormListQuery {
	query := dto.FormListQuery{
		DepartmentName: strings.TrimSpace(c.Query("department")),
		Status:         strings.TrimSpace(c.Query("status")),
		Search:         strings.TrimSpace(c.Query("search")),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = pageSize
	}
	return query
}

// List godoc
// @Summary List clearance forms for review
// @Tags Forms
// @Produce json
// @Param department query string false "Department name (admin only)"
// @Param status query string false "Form status filter"
// @Param search query string false "Registration number or student name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms [get]
func (h *ClearanceHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "clearance service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	forms, pagination, err := h.service.ListForms(c.Request.Context(), claims, listQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "Forms fetched", forms, pagination)
}

// Get godoc
// @Summary Get one clearance form with department rows
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *ClearanceHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "clearance service not configured"))
		return
	}
	detail, err := h.service.GetForm(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Form fetched", detail)
}

// Approve godoc
// @Summary Approve a pending department entry
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param department path string true "Department name"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/departments/{department}/approve [post]
func (h *ClearanceHandler) Approve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "clearance service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	department := c.Param("department")
	if !departmentAllowed(claims, department) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "you can only act on your own department"))
		return
	}
	result, err := h.service.ApproveDepartment(c.Request.Context(), c.Param("id"), department, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Department approved", result)
}

// Reject godoc
// @Summary Reject a pending department entry
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param department path string true "Department name"
// @Param payload body dto.DepartmentActionRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/departments/{department}/reject [post]
func (h *ClearanceHandler) Reject(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "clearance service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DepartmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid rejection payload"))
		return
	}
	department := c.Param("department")
	if !departmentAllowed(claims, department) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "you can only act on your own department"))
		return
	}
	result, err := h.service.RejectDepartment(c.Request.Context(), c.Param("id"), department, claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Department rejected", result)
}

// Export godoc
// @Summary Export the review queue as CSV
// @Tags Forms
// @Produce text/csv
// @Param department query string false "Department name (admin only)"
// @Param status query string false "Form status filter"
// @Success 200 {file} file
// @Router /forms/export [get]
func (h *ClearanceHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "clearance service not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, err := h.service.ExportQueueCSV(c.Request.Context(), claims, listQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("clearance-queue-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
