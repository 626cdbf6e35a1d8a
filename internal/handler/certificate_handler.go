package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/response"
)

type certificateService interface {
	DownloadToken(ctx context.Context, formID string) (*dto.CertificateDownload, error)
	Open(token string) (*os.File, error)
}

// CertificateHandler serves certificate download tokens and files.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(service certificateService) *CertificateHandler {
	return &CertificateHandler{service: service}
}

// Token godoc
// @Summary Get a signed download token for a form's certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/certificate [get]
func (h *CertificateHandler) Token(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "certificate service not configured"))
		return
	}
	download, err := h.service.DownloadToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Certificate download token issued", download)
}

// Download godoc
// @Summary Download a certificate by signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "certificate service not configured"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a download token is required"))
		return
	}
	file, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read certificate file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="no-dues-certificate.pdf"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", file, nil)
}
