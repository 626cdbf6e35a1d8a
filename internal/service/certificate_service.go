package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/export"
	"github.com/noah-isme/nodues-go-api/pkg/storage"
)

type certificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	GetByFormID(ctx context.Context, formID string) (*models.Certificate, error)
	GetBySerial(ctx context.Context, serialNo string) (*models.Certificate, error)
}

// CertificateService issues clearance certificates for completed forms and
// serves them through signed download tokens. The blockchain fields on the
// certificate stay opaque; an external anchoring service fills them in.
type CertificateService struct {
	certs    certificateStore
	storage  *storage.LocalStorage
	signer   *storage.SignedURLSigner
	renderer *export.CertificateRenderer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewCertificateService constructs the service.
func NewCertificateService(certs certificateStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		certs:    certs,
		storage:  store,
		signer:   signer,
		renderer: export.NewCertificateRenderer(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Issue renders and records a certificate for a completed form. Idempotent:
// a form that already has a certificate gets the existing one back.
func (s *CertificateService) Issue(ctx context.Context, form *models.NoDuesForm, rows []models.DepartmentStatus) (*models.Certificate, error) {
	existing, err := s.certs.GetByFormID(ctx, form.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up certificate")
	}

	issuedAt := time.Now().UTC()
	serialNo := fmt.Sprintf("NDC-%s-%s", issuedAt.Format("2006"), form.RegistrationNo)

	departments := make([]export.CertificateDepartment, 0, len(rows))
	for _, row := range rows {
		clearedOn := ""
		if row.ActionAt != nil {
			clearedOn = row.ActionAt.Format("02 Jan 2006")
		}
		departments = append(departments, export.CertificateDepartment{Name: row.DepartmentName, ClearedOn: clearedOn})
	}

	pdfBytes, err := s.renderer.Render(export.CertificateData{
		SerialNo:       serialNo,
		StudentName:    form.StudentName,
		RegistrationNo: form.RegistrationNo,
		School:         form.School,
		Course:         form.Course,
		Branch:         form.Branch,
		IssuedOn:       issuedAt.Format("02 Jan 2006"),
		Departments:    departments,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	relPath := fmt.Sprintf("%s/%s.pdf", issuedAt.Format("2006"), serialNo)
	if _, err := s.storage.Save(relPath, pdfBytes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store certificate")
	}

	cert := &models.Certificate{
		FormID:         form.ID,
		RegistrationNo: form.RegistrationNo,
		SerialNo:       serialNo,
		FilePath:       relPath,
		IssuedAt:       issuedAt,
	}
	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to record certificate")
	}

	if s.metrics != nil {
		s.metrics.RecordCertificateIssued()
	}
	s.logger.Info("certificate issued",
		zap.String("form_id", form.ID),
		zap.String("serial_no", serialNo),
	)
	return cert, nil
}

// DownloadToken returns a signed token for the certificate of a form.
func (s *CertificateService) DownloadToken(ctx context.Context, formID string) (*dto.CertificateDownload, error) {
	cert, err := s.certs.GetByFormID(ctx, formID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no certificate issued for this form")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	token, expiresAt, err := s.signer.Generate(cert.ID, cert.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return &dto.CertificateDownload{SerialNo: cert.SerialNo, Token: token, ExpiresAt: expiresAt}, nil
}

// Open validates a download token and returns the certificate file.
func (s *CertificateService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	return file, nil
}
