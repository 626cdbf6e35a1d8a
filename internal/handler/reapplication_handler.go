package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/response"
)

type reapplicationService interface {
	Reapply(ctx context.Context, req dto.SubmitReapplicationRequest) (*dto.ReapplicationOutcome, error)
	Status(ctx context.Context, registrationNo string) (*dto.ReapplicationStatusResponse, error)
}

// ReapplicationHandler exposes the student-facing reapplication endpoints.
type ReapplicationHandler struct {
	service reapplicationService
}

// NewReapplicationHandler constructs the handler.
func NewReapplicationHandler(service reapplicationService) *ReapplicationHandler {
	return &ReapplicationHandler{service: service}
}

// Submit godoc
// @Summary Reapply to a rejecting department
// @Tags Reapplications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitReapplicationRequest true "Reapplication payload"
// @Success 200 {object} response.Envelope
// @Router /reapplications [post]
func (h *ReapplicationHandler) Submit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "reapplication service not configured"))
		return
	}
	var req dto.SubmitReapplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reapplication payload"))
		return
	}
	outcome, err := h.service.Reapply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Reapplication submitted successfully", outcome)
}

// Status godoc
// @Summary Reapplication status and eligibility for a student
// @Tags Reapplications
// @Produce json
// @Param registrationNo path string true "Registration number"
// @Success 200 {object} response.Envelope
// @Router /reapplications/status/{registrationNo} [get]
func (h *ReapplicationHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "reapplication service not configured"))
		return
	}
	registrationNo := strings.TrimSpace(c.Param("registrationNo"))
	if registrationNo == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "registration number is required"))
		return
	}
	status, err := h.service.Status(c.Request.Context(), registrationNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Reapplication status fetched", status)
}
