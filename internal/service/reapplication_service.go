package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/nodues-go-api/internal/dto"
	"github.com/noah-isme/nodues-go-api/internal/models"
	"github.com/noah-isme/nodues-go-api/internal/repository"
	"github.com/noah-isme/nodues-go-api/pkg/config"
	appErrors "github.com/noah-isme/nodues-go-api/pkg/errors"
)

// ReapplyForcesFormPending preserves the legacy behavior of returning the
// whole form to the review queue when any single department is reapplied to,
// instead of recomputing the aggregate from the row set. Flagged to product
// as a deliberate policy, not an oversight.
const ReapplyForcesFormPending = true

// DefaultMinStudentMessageLength is the minimum trimmed length of the
// student's reply message.
const DefaultMinStudentMessageLength = 10

type reapplicationFormStore interface {
	GetByRegistrationNo(ctx context.Context, registrationNo string) (*models.NoDuesForm, error)
	ApplyReapplication(ctx context.Context, params repository.ReapplyFormParams) error
}

type reapplicationStatusStore interface {
	ListByFormID(ctx context.Context, formID string) ([]models.DepartmentStatus, error)
	ResetForReapplication(ctx context.Context, formID, departmentName string) error
}

type reapplicationHistoryStore interface {
	Create(ctx context.Context, entry *models.ReapplicationHistoryEntry) error
	ListByFormID(ctx context.Context, formID string) ([]models.ReapplicationHistoryEntry, error)
}

// NotificationPublisher is the dispatcher boundary: delivery is best effort
// and never affects the outcome of the reapplication.
type NotificationPublisher interface {
	Publish(ctx context.Context, event models.NotificationEvent) error
}

// ReapplicationService orchestrates per-department reapplications.
type ReapplicationService struct {
	forms    reapplicationFormStore
	statuses reapplicationStatusStore
	history  reapplicationHistoryStore
	notifier NotificationPublisher
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger

	maxPerDepartment int
	minMessageLength int
}

// NewReapplicationService constructs the service.
func NewReapplicationService(
	forms reapplicationFormStore,
	statuses reapplicationStatusStore,
	history reapplicationHistoryStore,
	notifier NotificationPublisher,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg config.ClearanceConfig,
) *ReapplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPerDepartment := cfg.MaxReapplicationsPerDepartment
	if maxPerDepartment <= 0 {
		maxPerDepartment = DefaultMaxReapplicationsPerDepartment
	}
	minMessageLength := cfg.MinStudentMessageLength
	if minMessageLength <= 0 {
		minMessageLength = DefaultMinStudentMessageLength
	}
	return &ReapplicationService{
		forms:            forms,
		statuses:         statuses,
		history:          history,
		notifier:         notifier,
		cache:            cache,
		metrics:          metrics,
		logger:           logger,
		maxPerDepartment: maxPerDepartment,
		minMessageLength: minMessageLength,
	}
}

// Reapply processes a single per-department reapplication.
//
// The history entry is the durability point: it is written strictly before
// any live-state mutation, so an interrupted request leaves the prior
// consistent state plus at worst an orphan audit row. The department row
// reset is guarded on the row still being rejected; a lost race surfaces as
// CONCURRENT_MODIFICATION instead of a double-counted attempt.
func (s *ReapplicationService) Reapply(ctx context.Context, req dto.SubmitReapplicationRequest) (*dto.ReapplicationOutcome, error) {
	registrationNo := strings.ToUpper(strings.TrimSpace(req.RegistrationNo))
	departmentName := strings.TrimSpace(req.DepartmentName)
	message := strings.TrimSpace(req.StudentReplyMessage)

	if registrationNo == "" || departmentName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration number and department name are required")
	}
	if utf8.RuneCountInString(message) < s.minMessageLength {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("reply message must be at least %d characters", s.minMessageLength))
	}

	form, err := s.forms.GetByRegistrationNo(ctx, registrationNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no clearance form found for this registration number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}

	rows, err := s.statuses.ListByFormID(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department statuses")
	}

	target := findDepartmentRow(rows, departmentName)
	if target == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("department %q not found on this form", departmentName))
	}

	if err := CheckReapplyEligibility(form, target, s.maxPerDepartment); err != nil {
		s.recordRejected(err)
		return nil, err
	}

	sanitized, err := SanitizeEditedFields(req.UpdatedFormData)
	if err != nil {
		s.recordRejected(err)
		return nil, err
	}

	entry, err := buildHistoryEntry(form, target, rows, message, sanitized)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build history entry")
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to record reapplication history")
	}

	now := time.Now().UTC()
	if err := s.forms.ApplyReapplication(ctx, repository.ReapplyFormParams{
		FormID:          form.ID,
		SanitizedFields: sanitized,
		Status:          models.FormStatusPending,
		LastReappliedAt: now,
	}); err != nil {
		// History entry remains as evidence of the attempt.
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update form")
	}

	if err := s.statuses.ResetForReapplication(ctx, form.ID, target.DepartmentName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordRejected(appErrors.ErrConcurrentModification)
			return nil, appErrors.Clone(appErrors.ErrConcurrentModification,
				"department status changed while processing the reapplication")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to reset department status")
	}

	attempt := target.RejectionCount + 1
	remaining := s.maxPerDepartment - attempt

	s.publishProcessed(ctx, form, target.DepartmentName, message, sanitized, attempt, remaining)
	s.invalidateStatusCache(ctx, registrationNo)
	if s.metrics != nil {
		s.metrics.RecordReapplication(true, "")
	}
	s.logger.Info("reapplication processed",
		zap.String("form_id", form.ID),
		zap.String("registration_no", registrationNo),
		zap.String("department", target.DepartmentName),
		zap.Int("attempt", attempt),
	)

	return &dto.ReapplicationOutcome{
		Department:           target.DepartmentName,
		ReapplicationAttempt: attempt,
		RemainingAttempts:    remaining,
		FormStatus:           models.FormStatusPending,
	}, nil
}

// Status answers the read-only eligibility/history query for a registration
// number.
func (s *ReapplicationService) Status(ctx context.Context, registrationNo string) (*dto.ReapplicationStatusResponse, error) {
	registrationNo = strings.ToUpper(strings.TrimSpace(registrationNo))
	if registrationNo == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration number is required")
	}

	cacheKey := statusCacheKey(registrationNo)
	if s.cache != nil {
		var cached dto.ReapplicationStatusResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	form, err := s.forms.GetByRegistrationNo(ctx, registrationNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no clearance form found for this registration number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}

	rows, err := s.statuses.ListByFormID(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department statuses")
	}

	entries, err := s.history.ListByFormID(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reapplication history")
	}

	departments := make([]dto.DepartmentReapplyState, 0, len(rows))
	for _, row := range rows {
		remaining := s.maxPerDepartment - row.RejectionCount
		if remaining < 0 {
			remaining = 0
		}
		departments = append(departments, dto.DepartmentReapplyState{
			DepartmentName:    row.DepartmentName,
			Status:            row.Status,
			RejectionReason:   row.RejectionReason,
			RejectionCount:    row.RejectionCount,
			RemainingAttempts: remaining,
			CanReapply:        CheckReapplyEligibility(form, &row, s.maxPerDepartment) == nil,
			ActionAt:          row.ActionAt,
		})
	}

	resp := &dto.ReapplicationStatusResponse{
		FormID:                   form.ID,
		RegistrationNo:           form.RegistrationNo,
		FormStatus:               form.Status,
		GlobalReapplicationCount: form.ReapplicationCount,
		Departments:              departments,
		PerDepartmentHistory:     entries,
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, resp, 0)
	}
	return resp, nil
}

func (s *ReapplicationService) publishProcessed(ctx context.Context, form *models.NoDuesForm, departmentName, message string, sanitized map[string]string, attempt, remaining int) {
	if s.notifier == nil {
		return
	}
	event := models.NotificationEvent{
		Type:              models.EventReapplicationProcessed,
		FormID:            form.ID,
		RegistrationNo:    form.RegistrationNo,
		DepartmentName:    departmentName,
		StudentName:       fieldOr(sanitized, "student_name", form.StudentName),
		School:            fieldOr(sanitized, "school", form.School),
		Course:            fieldOr(sanitized, "course", form.Course),
		Branch:            fieldOr(sanitized, "branch", form.Branch),
		Message:           message,
		AttemptNumber:     attempt,
		RemainingAttempts: remaining,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish reapplication notification",
			zap.String("form_id", form.ID),
			zap.String("department", departmentName),
			zap.Error(err),
		)
	}
}

func (s *ReapplicationService) invalidateStatusCache(ctx context.Context, registrationNo string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, statusCacheKey(registrationNo)); err != nil {
		s.logger.Warn("failed to invalidate status cache", zap.String("registration_no", registrationNo), zap.Error(err))
	}
}

func (s *ReapplicationService) recordRejected(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordReapplication(false, appErrors.FromError(err).Code)
}

func statusCacheKey(registrationNo string) string {
	return "clearance:status:" + registrationNo
}

func findDepartmentRow(rows []models.DepartmentStatus, departmentName string) *models.DepartmentStatus {
	for i := range rows {
		if strings.EqualFold(rows[i].DepartmentName, departmentName) {
			return &rows[i]
		}
	}
	return nil
}

func fieldOr(fields map[string]string, key, fallback string) string {
	if value, ok := fields[key]; ok && value != "" {
		return value
	}
	return fallback
}

func buildHistoryEntry(form *models.NoDuesForm, target *models.DepartmentStatus, rows []models.DepartmentStatus, message string, sanitized map[string]string) (*models.ReapplicationHistoryEntry, error) {
	var editedJSON []byte
	if len(sanitized) > 0 {
		data, err := json.Marshal(sanitized)
		if err != nil {
			return nil, fmt.Errorf("marshal edited fields: %w", err)
		}
		editedJSON = data
	}

	rejected := models.RejectedDepartmentSnapshot{
		DepartmentName: target.DepartmentName,
		RejectedAt:     target.ActionAt,
	}
	if target.RejectionReason != nil {
		rejected.Reason = *target.RejectionReason
	}
	rejectedJSON, err := json.Marshal([]models.RejectedDepartmentSnapshot{rejected})
	if err != nil {
		return nil, fmt.Errorf("marshal rejected departments: %w", err)
	}

	previousJSON, err := json.Marshal(models.SnapshotDepartmentStatuses(rows))
	if err != nil {
		return nil, fmt.Errorf("marshal previous status: %w", err)
	}

	departmentName := target.DepartmentName
	return &models.ReapplicationHistoryEntry{
		FormID:              form.ID,
		ReapplicationNumber: form.ReapplicationCount + 1,
		DepartmentName:      &departmentName,
		StudentMessage:      message,
		EditedFields:        editedJSON,
		RejectedDepartments: rejectedJSON,
		PreviousStatus:      previousJSON,
	}, nil
}
