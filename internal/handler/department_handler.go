package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/response"
)

type departmentLister interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
}

// DepartmentHandler serves the department catalog.
type DepartmentHandler struct {
	service departmentLister
}

// NewDepartmentHandler constructs the handler.
func NewDepartmentHandler(service departmentLister) *DepartmentHandler {
	return &DepartmentHandler{service: service}
}

// List godoc
// @Summary List active clearance departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "department service not configured"))
		return
	}
	departments, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Departments fetched", departments)
}
