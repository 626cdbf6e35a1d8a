package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/internal/repository"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
	"github.com/noah-isme/nodues-go-api/pkg/export"
)

type clearanceFormStore interface {
	GetByID(ctx context.Context, id string) (*models.NoDuesForm, error)
	List(ctx context.Context, filter models.FormFilter) ([]models.NoDuesForm, int, error)
	UpdateStatus(ctx context.Context, formID string, status models.FormStatus, rejectionSnapshot []byte) error
}

type clearanceStatusStore interface {
	ListByFormID(ctx context.Context, formID string) ([]models.DepartmentStatus, error)
	GetByFormAndDepartment(ctx context.Context, formID, departmentName string) (*models.DepartmentStatus, error)
	ApplyAction(ctx context.Context, params repository.ActionParams) error
}

type departmentCatalog interface {
	ListActive(ctx context.Context) ([]models.Department, error)
}

type CertificateIssuer interface {
	Issue(ctx context.Context, form *models.NoDuesForm, rows []models.DepartmentStatus) (*models.Certificate, error)
}

// ClearanceService backs the staff side of the portal: the review queue,
// form detail views and approve/reject decisions on department rows.
type ClearanceService struct {
	forms       clearanceFormStore
	statuses    clearanceStatusStore
	departments departmentCatalog
	certs       certificateStore
	issuer      CertificateIssuer
	notifier    NotificationPublisher
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	csvExporter *export.CSVExporter
}

// NewClearanceService constructs the service. The issuer may be nil when
// certificate issuance is disabled.
func NewClearanceService(
	forms clearanceFormStore,
	statuses clearanceStatusStore,
	departments departmentCatalog,
	certs certificateStore,
	issuer CertificateIssuer,
	notifier NotificationPublisher,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *ClearanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearanceService{
		forms:       forms,
		statuses:    statuses,
		departments: departments,
		certs:       certs,
		issuer:      issuer,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		csvExporter: export.NewCSVExporter(),
	}
}

// ListForms returns the staff review queue. Department staff only see their
// own department's rows; admins see everything and may filter freely.
func (s *ClearanceService) ListForms(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]models.NoDuesForm, *models.Pagination, error) {
	filter := models.FormFilter{
		DepartmentName: query.DepartmentName,
		Status:         models.FormStatus(query.Status),
		Search:         strings.TrimSpace(query.Search),
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	if claims != nil && claims.Role != models.RoleAdmin {
		if claims.DepartmentName == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "staff account has no department assignment")
		}
		filter.DepartmentName = claims.DepartmentName
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	forms, total, err := s.forms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forms")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return forms, pagination, nil
}

// GetForm returns one form with its department rows and, when issued, its
// certificate.
func (s *ClearanceService) GetForm(ctx context.Context, formID string) (*dto.FormDetail, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no clearance form found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	rows, err := s.statuses.ListByFormID(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department statuses")
	}
	detail := &dto.FormDetail{Form: *form, Departments: rows}
	if s.certs != nil {
		cert, err := s.certs.GetByFormID(ctx, form.ID)
		if err == nil {
			detail.Certificate = cert
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load certificate for form detail",
				zap.String("form_id", form.ID),
				zap.Error(err),
			)
		}
	}
	return detail, nil
}

// ApproveDepartment marks a pending department row approved and recomputes
// the aggregate form status.
func (s *ClearanceService) ApproveDepartment(ctx context.Context, formID, departmentName, actorUserID string) (*dto.DepartmentActionResult, error) {
	return s.applyDecision(ctx, formID, departmentName, actorUserID, models.DepartmentStatusApproved, nil)
}

// RejectDepartment marks a pending department row rejected with a reason and
// recomputes the aggregate form status.
func (s *ClearanceService) RejectDepartment(ctx context.Context, formID, departmentName, actorUserID, reason string) (*dto.DepartmentActionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}
	return s.applyDecision(ctx, formID, departmentName, actorUserID, models.DepartmentStatusRejected, &reason)
}

func (s *ClearanceService) applyDecision(ctx context.Context, formID, departmentName, actorUserID string, decision models.DepartmentStatusValue, reason *string) (*dto.DepartmentActionResult, error) {
	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no clearance form found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	if form.Status == models.FormStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrFormTerminal, "this form is already completed and can no longer change")
	}

	row, err := s.statuses.GetByFormAndDepartment(ctx, form.ID, departmentName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no %s entry on this form", departmentName))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department status")
	}
	if row.Status != models.DepartmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("the %s entry is %s, only pending entries can be decided", row.DepartmentName, row.Status))
	}

	err = s.statuses.ApplyAction(ctx, repository.ActionParams{
		FormID:          form.ID,
		DepartmentName:  row.DepartmentName,
		Status:          decision,
		RejectionReason: reason,
		ActionByUserID:  actorUserID,
		ActionAt:        time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "the department entry changed while processing, retry the action")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to record decision")
	}

	rows, err := s.statuses.ListByFormID(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload department statuses")
	}
	newStatus := ResolveFormStatus(rows)
	if newStatus != form.Status {
		var snapshot []byte
		if newStatus == models.FormStatusRejected {
			snapshot, err = json.Marshal(models.SnapshotDepartmentStatuses(rows))
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot rejection state")
			}
		}
		if err := s.forms.UpdateStatus(ctx, form.ID, newStatus, snapshot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update form status")
		}
	}

	result := &dto.DepartmentActionResult{
		DepartmentName:   row.DepartmentName,
		DepartmentStatus: decision,
		FormStatus:       newStatus,
	}
	if newStatus == models.FormStatusCompleted && s.issuer != nil {
		cert, certErr := s.issuer.Issue(ctx, form, rows)
		if certErr != nil {
			s.logger.Error("certificate issuance failed",
				zap.String("form_id", form.ID),
				zap.Error(certErr),
			)
		} else {
			result.CertificateID = cert.ID
		}
	}

	s.publishStatusChange(ctx, form, row.DepartmentName, decision, reason, newStatus)
	s.invalidateStatusCache(ctx, form.RegistrationNo)

	s.logger.Info("department decision recorded",
		zap.String("form_id", form.ID),
		zap.String("registration_no", form.RegistrationNo),
		zap.String("department", row.DepartmentName),
		zap.String("decision", string(decision)),
		zap.String("form_status", string(newStatus)),
		zap.String("actor", actorUserID),
	)
	return result, nil
}

// ListDepartments returns the active department catalog.
func (s *ClearanceService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// ExportQueueCSV renders the staff queue matching the filters as CSV, for
// offline review.
func (s *ClearanceService) ExportQueueCSV(ctx context.Context, claims *models.JWTClaims, query dto.FormListQuery) ([]byte, error) {
	query.Page = 1
	query.PageSize = 100
	forms, _, err := s.ListForms(ctx, claims, query)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"registration_no", "student_name", "school", "course", "branch", "status", "reapplications", "submitted_at"},
	}
	for _, form := range forms {
		dataset.Append(
			form.RegistrationNo,
			form.StudentName,
			form.School,
			form.Course,
			form.Branch,
			string(form.Status),
			fmt.Sprintf("%d", form.ReapplicationCount),
			form.CreatedAt.Format(time.RFC3339),
		)
	}
	return s.csvExporter.Render(dataset)
}

func (s *ClearanceService) publishStatusChange(ctx context.Context, form *models.NoDuesForm, departmentName string, decision models.DepartmentStatusValue, reason *string, formStatus models.FormStatus) {
	if s.notifier == nil {
		return
	}
	event := models.NotificationEvent{
		Type:                models.EventStatusChanged,
		FormID:              form.ID,
		RegistrationNo:      form.RegistrationNo,
		DepartmentName:      departmentName,
		StudentName:         form.StudentName,
		School:              form.School,
		Course:              form.Course,
		Branch:              form.Branch,
		NewDepartmentStatus: decision,
		NewFormStatus:       formStatus,
	}
	if reason != nil {
		event.Message = *reason
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish status change notification",
			zap.String("form_id", form.ID),
			zap.Error(err),
		)
	}
}

func (s *ClearanceService) invalidateStatusCache(ctx context.Context, registrationNo string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, statusCacheKey(registrationNo)); err != nil {
		s.logger.Warn("failed to invalidate status cache",
			zap.String("registration_no", registrationNo),
			zap.Error(err),
		)
	}
}
